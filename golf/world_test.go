package golf

import (
	"testing"
	"time"
)

var testBall = BallParams{Radius: 16, Bounce: 0.8, Drag: 50}

func TestArcadeWorldStraightShotReachesHole(t *testing.T) {
	w := NewArcadeWorld(800, 600)
	defer w.Destroy()

	ball := w.AddBall(Point{X: 400, Y: 500}, testBall)
	overlaps := 0
	w.AddSensor(Point{X: 400, Y: 100}, 16, func() { overlaps++ })

	ball.SetVelocity(Vec{X: 0, Y: -300})
	for i := 0; i < 120 && overlaps == 0; i++ {
		w.Step(frame)
	}
	if overlaps == 0 {
		t.Fatalf("ball never reached the hole, stopped at %+v", ball.Position())
	}
	if x := ball.Position().X; x != 400 {
		t.Fatalf("straight shot drifted to x=%v", x)
	}
}

func TestArcadeWorldWallBounce(t *testing.T) {
	w := NewArcadeWorld(800, 600)
	defer w.Destroy()

	ball := w.AddBall(Point{X: 400, Y: 500}, testBall)
	w.AddObstacle(Obstacle{X: 400, Y: 300, Width: 200, Height: 20})
	ball.SetVelocity(Vec{X: 0, Y: -400})

	for i := 0; i < 60 && ball.Velocity().Y < 0; i++ {
		w.Step(frame)
	}
	if ball.Velocity().Y <= 0 {
		t.Fatalf("ball did not bounce off the wall: %+v", ball.Velocity())
	}
	if y := ball.Position().Y; y < 310+testBall.Radius-0.001 {
		t.Fatalf("ball penetrated the wall: y=%v", y)
	}
}

func TestArcadeWorldFastBallDoesNotTunnel(t *testing.T) {
	w := NewArcadeWorld(800, 600)
	defer w.Destroy()

	ball := w.AddBall(Point{X: 400, Y: 500}, BallParams{Radius: 8, Bounce: 1})
	w.AddObstacle(Obstacle{X: 400, Y: 300, Width: 200, Height: 4})
	ball.SetVelocity(Vec{X: 0, Y: -6000})
	w.Step(50 * time.Millisecond)

	if ball.Position().Y < 300 {
		t.Fatalf("ball passed through a thin wall: %+v", ball.Position())
	}
}

func TestArcadeWorldBoundsBounce(t *testing.T) {
	w := NewArcadeWorld(800, 600)
	defer w.Destroy()

	ball := w.AddBall(Point{X: 40, Y: 300}, BallParams{Radius: 16, Bounce: 0.5})
	ball.SetVelocity(Vec{X: -600, Y: 0})
	for i := 0; i < 10; i++ {
		w.Step(frame)
	}
	if v := ball.Velocity(); v.X <= 0 || v.X > 300 {
		t.Fatalf("velocity after left bound = %+v, want reflected at half speed", v)
	}
	if x := ball.Position().X; x < 16 {
		t.Fatalf("ball left the world: x=%v", x)
	}
}

func TestArcadeWorldDragStopsBall(t *testing.T) {
	w := NewArcadeWorld(800, 600)
	defer w.Destroy()

	ball := w.AddBall(Point{X: 400, Y: 300}, testBall)
	ball.SetVelocity(Vec{X: 30, Y: -40})
	w.Step(500 * time.Millisecond)
	if v := ball.Velocity(); v.X != 5 || v.Y != -15 {
		t.Fatalf("velocity after drag = %+v", v)
	}
	w.Step(time.Second)
	if v := ball.Velocity(); v != (Vec{}) {
		t.Fatalf("ball still moving: %+v", v)
	}
}

func TestArcadeWorldDestroyIdempotent(t *testing.T) {
	w := NewArcadeWorld(800, 600)
	ball := w.AddBall(Point{X: 400, Y: 300}, testBall)
	w.AddObstacle(Obstacle{X: 100, Y: 100, Width: 10, Height: 10})
	called := false
	w.AddSensor(Point{X: 400, Y: 300}, 16, func() { called = true })

	w.Destroy()
	w.Destroy()
	ball.SetVelocity(Vec{X: 100})
	w.Step(frame)
	if called || ball.Position() != (Point{X: 400, Y: 300}) {
		t.Fatalf("destroyed world still simulating")
	}
}
