package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

const keyPrefix = "inferflow:cache:"

// KeyStrategy 缓存键生成策略接口。
type KeyStrategy interface {
	// GenerateKey 对输入内容生成确定性缓存键
	GenerateKey(input []byte) string

	// Name 返回策略名称（用于日志和调试）
	Name() string
}

// RoundingKeyStrategy 规范化哈希键策略。
// JSON 输入先做规范化：对象键排序、浮点值按 Precision 位小数舍入，
// 再取 sha256；非 JSON 输入直接对原始字节哈希。
// 舍入让数值上近似相同的输入命中同一条目，精度换命中率。
type RoundingKeyStrategy struct {
	precision int
}

// NewRoundingKeyStrategy 创建舍入键策略，precision 为小数位数。
func NewRoundingKeyStrategy(precision int) *RoundingKeyStrategy {
	if precision < 0 {
		precision = 6
	}
	return &RoundingKeyStrategy{precision: precision}
}

// Name 返回策略名称。
func (s *RoundingKeyStrategy) Name() string { return "rounding" }

// GenerateKey 生成规范化哈希缓存键。
func (s *RoundingKeyStrategy) GenerateKey(input []byte) string {
	canonical := s.canonicalize(input)
	hash := sha256.Sum256(canonical)
	return keyPrefix + hex.EncodeToString(hash[:16]) // 取前 16 字节
}

// canonicalize 返回输入的规范化字节表示。
func (s *RoundingKeyStrategy) canonicalize(input []byte) []byte {
	var value any
	if err := json.Unmarshal(input, &value); err != nil {
		return input // 非 JSON：按不透明字节处理
	}
	var sb strings.Builder
	s.writeCanonical(&sb, value)
	return []byte(sb.String())
}

// writeCanonical 以确定顺序写出值：对象键排序，浮点按精度舍入。
func (s *RoundingKeyStrategy) writeCanonical(sb *strings.Builder, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Quote(k))
			sb.WriteByte(':')
			s.writeCanonical(sb, v[k])
		}
		sb.WriteByte('}')
	case []any:
		sb.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			s.writeCanonical(sb, item)
		}
		sb.WriteByte(']')
	case float64:
		sb.WriteString(strconv.FormatFloat(s.round(v), 'g', -1, 64))
	case string:
		sb.WriteString(strconv.Quote(v))
	case bool:
		sb.WriteString(strconv.FormatBool(v))
	case nil:
		sb.WriteString("null")
	default:
		data, _ := json.Marshal(v)
		sb.Write(data)
	}
}

func (s *RoundingKeyStrategy) round(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow10(s.precision)
	return math.Round(v*scale) / scale
}

// RawKeyStrategy 原始字节哈希策略，不做任何规范化。
type RawKeyStrategy struct{}

// NewRawKeyStrategy 创建原始哈希策略。
func NewRawKeyStrategy() *RawKeyStrategy { return &RawKeyStrategy{} }

// Name 返回策略名称。
func (s *RawKeyStrategy) Name() string { return "raw" }

// GenerateKey 直接对输入字节哈希。
func (s *RawKeyStrategy) GenerateKey(input []byte) string {
	hash := sha256.Sum256(input)
	return keyPrefix + hex.EncodeToString(hash[:16])
}
