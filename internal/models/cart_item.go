package models

import (
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout ajoute_le 的 ISO-8601 格式（UTC，毫秒精度）
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// CartItem 购物车商品行
type CartItem struct {
	Code       string `json:"code,omitempty"`       // 条码
	IDSansCode string `json:"idSansCode,omitempty"` // 无条码商品的目录 ID
	Nom        string `json:"nom"`                  // 展示名称
	Prix       Money  `json:"prix"`                 // 单价
	Quantity   int    `json:"quantity"`             // 数量
	AjouteLe   string `json:"ajoute_le,omitempty"`  // 首次加入时间
}

// ItemIdentity 商品身份（条码 + 目录 ID）
type ItemIdentity struct {
	Code       string `json:"code,omitempty"`
	IDSansCode string `json:"idSansCode,omitempty"`
}

// FormatTimestamp 格式化 ajoute_le 时间戳
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Identity 返回商品身份
func (i CartItem) Identity() ItemIdentity {
	return ItemIdentity{Code: i.Code, IDSansCode: i.IDSansCode}
}

// HasIdentity 条码或目录 ID 至少存在一个
func (id ItemIdentity) HasIdentity() bool {
	return strings.TrimSpace(id.Code) != "" || strings.TrimSpace(id.IDSansCode) != ""
}

// Signature 返回身份签名
func (id ItemIdentity) Signature() string {
	payload, _ := json.Marshal([2]string{strings.TrimSpace(id.Code), strings.TrimSpace(id.IDSansCode)})
	return "id:" + string(payload)
}

// Signature 去重键：优先使用 (code, idSansCode)，都缺失时退化为名称与单价的结构哈希。
// 数量与时间戳不参与哈希，数量修改后签名保持不变。
func (i CartItem) Signature() string {
	if id := i.Identity(); id.HasIdentity() {
		return id.Signature()
	}
	payload, _ := json.Marshal(struct {
		Nom  string `json:"nom"`
		Prix string `json:"prix"`
	}{
		Nom:  strings.TrimSpace(i.Nom),
		Prix: i.Prix.String(),
	})
	sum := sha256.Sum256(payload)
	return "h:" + hex.EncodeToString(sum[:])
}

// Validate 校验商品行
func (i CartItem) Validate() error {
	if strings.TrimSpace(i.Nom) == "" {
		return errors.New("nom is required")
	}
	if i.Prix.IsNegative() {
		return ErrNegativeMoney
	}
	return nil
}

// Normalized 补齐默认值：数量至少为 1，缺失 ajoute_le 时使用 now
func (i CartItem) Normalized(now string) CartItem {
	if i.Quantity < 1 {
		i.Quantity = 1
	}
	if strings.TrimSpace(i.AjouteLe) == "" {
		i.AjouteLe = now
	}
	return i
}

// LineTotal 行小计
func (i CartItem) LineTotal() decimal.Decimal {
	qty := i.Quantity
	if qty < 1 {
		qty = 1
	}
	return i.Prix.Decimal.Mul(decimal.NewFromInt(int64(qty)))
}

// CartItems 购物车商品序列（数据库 JSON 列）
type CartItems []CartItem

// Value 实现 driver.Valuer 接口
func (items CartItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	payload, err := json.Marshal([]CartItem(items))
	if err != nil {
		return nil, err
	}
	return string(payload), nil
}

// Scan 实现 sql.Scanner 接口
func (items *CartItems) Scan(value interface{}) error {
	if value == nil {
		*items = CartItems{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported cart items column type %T", value)
	}
	if len(raw) == 0 {
		*items = CartItems{}
		return nil
	}
	return json.Unmarshal(raw, (*[]CartItem)(items))
}

// Total 合计金额
func (items CartItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total.Round(2)
}

// Count 商品件数
func (items CartItems) Count() int {
	count := 0
	for _, item := range items {
		if item.Quantity < 1 {
			count++
			continue
		}
		count += item.Quantity
	}
	return count
}

// DedupeBySignature 按签名去重，同签名保留最后一次出现；结果按保留项的位置排序
func DedupeBySignature(items []CartItem) []CartItem {
	seen := make(map[string]struct{}, len(items))
	kept := make([]CartItem, 0, len(items))
	for idx := len(items) - 1; idx >= 0; idx-- {
		sig := items[idx].Signature()
		if _, ok := seen[sig]; ok {
			continue
		}
		seen[sig] = struct{}{}
		kept = append(kept, items[idx])
	}
	for left, right := 0, len(kept)-1; left < right; left, right = left+1, right-1 {
		kept[left], kept[right] = kept[right], kept[left]
	}
	return kept
}

// IndexBySignature 查找签名对应的位置，不存在返回 -1
func IndexBySignature(items []CartItem, signature string) int {
	for idx := range items {
		if items[idx].Signature() == signature {
			return idx
		}
	}
	return -1
}
