package utils

import (
	"context"
	"log"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// StartSubsegment はX-Rayのサブセグメントを開始し、終了関数を返します
// 親セグメントがないコンテキスト（バッチのローカル実行やテスト）では何もしない終了関数を返します
func StartSubsegment(ctx context.Context, name string) (context.Context, func(error)) {
	subCtx, seg := xray.BeginSubsegment(ctx, name)
	if seg == nil {
		return ctx, func(error) {}
	}
	return subCtx, func(err error) { seg.Close(err) }
}

// AddMetadata は現在のセグメントにメタデータを追加します
func AddMetadata(ctx context.Context, key string, value interface{}) {
	if xray.GetSegment(ctx) == nil {
		return
	}
	if err := xray.AddMetadata(ctx, key, value); err != nil {
		log.Printf("Failed to add %s metadata: %v", key, err)
	}
}
