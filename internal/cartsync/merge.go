package cartsync

import "github.com/caisse-next/internal/models"

// Merge 合并远端、待同步队列与本地快照，返回按签名去重的购物车。
//
// 拼接顺序为 远端 -> 队列 add -> 本地快照，同签名保留最后一次出现。
// remove 按入队顺序生效，只过滤它之前累积的条目；本地快照总是所有队列操作之后的状态，因此最后追加。
// 缺失 ajoute_le 的条目使用 now。
func Merge(remote []models.CartItem, ops []models.PendingOperation, local []models.CartItem, now string) []models.CartItem {
	combined := make([]models.CartItem, 0, len(remote)+len(ops)+len(local))
	for _, item := range remote {
		combined = append(combined, item.Normalized(now))
	}
	for _, op := range ops {
		switch {
		case op.IsAdd():
			combined = append(combined, op.Product.Normalized(now))
		case op.IsRemove():
			combined = removeBySignature(combined, op.TargetSignature())
		}
	}
	for _, item := range local {
		combined = append(combined, item.Normalized(now))
	}
	return models.DedupeBySignature(combined)
}

func removeBySignature(items []models.CartItem, signature string) []models.CartItem {
	if signature == "" {
		return items
	}
	kept := items[:0]
	for _, item := range items {
		if item.Signature() == signature {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}
