package golf

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// DefaultAvatarKey 共享的默认头像纹理
const DefaultAvatarKey = "avatar:default"

// AvatarSource 按玩家名获取头像图片
type AvatarSource interface {
	FetchAvatar(ctx context.Context, username string) ([]byte, error)
}

func avatarKey(identity string) string {
	return "avatar:" + identity
}

// resolveAvatar 获取并校验头像；失败（含 404、非图片）一律回退默认头像，data 为 nil
func resolveAvatar(ctx context.Context, src AvatarSource, identity string) (key string, data []byte) {
	if src == nil {
		return DefaultAvatarKey, nil
	}
	b, err := src.FetchAvatar(ctx, identity)
	if err != nil {
		if !errors.Is(err, ErrAvatarNotFound) && !errors.Is(err, context.Canceled) {
			Log.Warnf("avatar fetch failed: user=%s err=%v", identity, err)
		}
		return DefaultAvatarKey, nil
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(b)); err != nil {
		Log.Warnf("avatar is not an image: user=%s bytes=%d err=%v", identity, len(b), err)
		return DefaultAvatarKey, nil
	}
	return avatarKey(identity), b
}
