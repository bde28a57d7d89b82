package golf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotOpen 连接未打开或已关闭，消息被丢弃
var ErrNotOpen = errors.New("channel not open")

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	maxFrameSize = 1 << 20 // 1MB
)

// Handler 入站消息处理器，总是在会话循环中被调用
type Handler func(env Envelope)

// Network 会话使用的双向通道
type Network interface {
	Send(msg any) error
	On(msgType string, h Handler)
	Dispatch() int
	Close() error
}

// Channel 每个洞会话独占的一条 WebSocket 连接。
// 读写各一个协程；入站消息先进入 inbox，由会话循环在帧内 Dispatch。
type Channel struct {
	ws       *websocket.Conn
	send     chan []byte
	inbox    chan Envelope
	handlers map[string]Handler
	done     chan struct{}
	flushed  chan struct{} // writePump 退出时关闭
	open     atomic.Bool
	once     sync.Once
	metrics  *Metrics
}

// NewChannel 包装已建立的连接；ws 为 nil 时得到一个离线通道（发送全部丢弃）
func NewChannel(ws *websocket.Conn, m *Metrics) *Channel {
	if m == nil {
		m = &Metrics{}
	}
	c := &Channel{
		ws:       ws,
		send:     make(chan []byte, 64),
		inbox:    make(chan Envelope, 256),
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
		flushed:  make(chan struct{}),
		metrics:  m,
	}
	if ws == nil {
		close(c.flushed)
	} else {
		c.open.Store(true)
		go c.writePump()
		go c.readPump()
	}
	return c
}

// DialOptions 建连参数
type DialOptions struct {
	URL      string
	Token    string        // 作为 auth_token cookie 发送
	Attempts int           // 最多尝试次数（含首次）
	Backoff  time.Duration // 首次重试前等待，之后翻倍
}

const maxDialBackoff = 2 * time.Second

// DialChannel 建立连接；失败时按指数退避重试，全部失败返回最后一次错误
func DialChannel(ctx context.Context, opts DialOptions, m *Metrics) (*Channel, error) {
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	header := http.Header{}
	if opts.Token != "" {
		header.Set("Cookie", (&http.Cookie{Name: AuthCookie, Value: opts.Token}).String())
	}
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}

	backoff := opts.Backoff
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxDialBackoff {
				backoff = maxDialBackoff
			}
		}
		ws, resp, err := dialer.DialContext(ctx, opts.URL, header)
		if err == nil {
			Log.Infof("channel connected: %s", opts.URL)
			return NewChannel(ws, m), nil
		}
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		lastErr = err
		Log.Warnf("dial %s attempt %d/%d failed: %v", opts.URL, i+1, attempts, err)
	}
	return nil, fmt.Errorf("dial %s: %w", opts.URL, lastErr)
}

// Open 连接是否仍可发送
func (c *Channel) Open() bool { return c.open.Load() }

// Send 序列化并入队；未打开时为空操作（返回 ErrNotOpen），队列满则丢弃
func (c *Channel) Send(msg any) error {
	if !c.open.Load() {
		c.metrics.IncOutboundDropped()
		return ErrNotOpen
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode outbound: %w", err)
	}
	select {
	case c.send <- b:
	case <-c.done:
		c.metrics.IncOutboundDropped()
		return ErrNotOpen
	default:
		// 为了实时性，丢弃新消息（位置以最后一条为准）
		c.metrics.IncOutboundDropped()
	}
	return nil
}

// On 注册某类型的处理器；同类型后注册者覆盖先注册者
func (c *Channel) On(msgType string, h Handler) {
	if c.handlers == nil {
		return
	}
	c.handlers[msgType] = h
}

// Dispatch 非阻塞地取出所有已到达的入站消息并交给处理器，返回处理条数
func (c *Channel) Dispatch() int {
	n := 0
	for {
		select {
		case env := <-c.inbox:
			h, ok := c.handlers[env.Type]
			if !ok {
				c.metrics.IncInboundDropped()
				continue
			}
			c.metrics.IncInbound()
			h(env)
			n++
		default:
			return n
		}
	}
}

// Close 先写出队列中剩余的消息（最终位置不能丢），再发送关闭帧并断开；
// 注销全部处理器，可重复调用
func (c *Channel) Close() error {
	var err error
	c.once.Do(func() {
		c.open.Store(false)
		close(c.done)
		c.handlers = nil
		if c.ws != nil {
			select {
			case <-c.flushed:
			case <-time.After(writeWait):
				Log.Warnf("channel close: outbound flush timed out")
			}
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			err = c.ws.Close()
		}
	})
	return err
}

// writePump 独立协程，负责从 send 队列写出到 WS，并定期 ping 保活
func (c *Channel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.flushed)
	}()
	for {
		select {
		case <-c.done:
			c.flush()
			return
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.lost(err)
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.lost(err)
				return
			}
		}
	}
}

// flush 关闭前把已入队的消息写完，整体受 writeWait 限制
func (c *Channel) flush() {
	deadline := time.Now().Add(writeWait)
	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(deadline)
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				Log.Debugf("channel flush: %v", err)
				return
			}
		default:
			return
		}
	}
}

// readPump 读取服务端消息，解析 type 后放入 inbox；格式错误的帧直接丢弃
func (c *Channel) readPump() {
	c.ws.SetReadLimit(maxFrameSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			c.lost(err)
			return
		}
		env, err := DecodeEnvelope(payload)
		if err != nil {
			c.metrics.IncInboundDropped()
			Log.Debugf("discarding malformed frame: %v", err)
			continue
		}
		select {
		case c.inbox <- env:
		case <-c.done:
			return
		default:
			c.metrics.IncInboundDropped()
		}
	}
}

// lost 连接中途断开：之后的发送全部丢弃，幽灵停在最后位置。不自动重连。
func (c *Channel) lost(err error) {
	select {
	case <-c.done:
		return
	default:
	}
	if c.open.CompareAndSwap(true, false) {
		c.metrics.IncDisconnects()
		Log.Warnf("channel lost: %v", err)
	}
}
