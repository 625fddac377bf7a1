// Package parser talks to an OpenAI-compatible chat-completions endpoint to
// turn raw address text into structured fields, and to arbitrate ranked
// candidate pairs when the judge asks for a second opinion.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/address-audit/app/models"
	"github.com/address-audit/internal/textutil"
)

// requestTimeout caps every upstream call. No retries: a failed parse
// degrades the record, it does not abort the run.
const requestTimeout = 30 * time.Second

const defaultModel = "gpt-4.1-mini"

// parseSchemaHint is the worked example embedded in every parse prompt.
var parseSchemaHint = map[string]interface{}{
	"province":     "安徽省",
	"city":         "合肥市",
	"district":     "蜀山区",
	"road":         "创新大道",
	"road_no":      "110",
	"aoi":          "蜀峰广场",
	"building":     "F9A",
	"floor":        "2",
	"room":         "203",
	"shop_name":    "惠康大药房",
	"intersection": []string{"科学大道", "天波路"},
	"direction":    "西北",
	"distance_m":   40,
}

// OpenAIClient is the shared HTTP client for parsing and arbitration.
type OpenAIClient struct {
	baseURL string
	model   string
	apiKey  string
	httpc   *http.Client
	logger  *zap.Logger
}

// NewOpenAIClient reads OPENAI_BASE_URL, OPENAI_MODEL and OPENAI_API_KEY
// from the environment.
func NewOpenAIClient(logger *zap.Logger) *OpenAIClient {
	baseURL := os.Getenv("OPENAI_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultModel
	}
	return &OpenAIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		apiKey:  os.Getenv("OPENAI_API_KEY"),
		httpc:   &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

// Available reports whether an API key is configured.
func (c *OpenAIClient) Available() bool { return c.apiKey != "" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete posts one chat request and returns the assistant's raw content.
func (c *OpenAIClient) complete(ctx context.Context, system, user string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("OPENAI_API_KEY is not set")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.0,
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("call chat completions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completions returned %s", resp.Status)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}
	return out.Choices[0].Message.Content, nil
}

const parseSystemPrompt = "你是地址结构化解析器。必须返回合法 JSON 字符串，不得包含注释或多余文字。\n" +
	"字段：province, city, district, road, road_no, aoi, building, floor, room, shop_name, " +
	"intersection(长度恰好为 2 的数组), direction, distance_m。\n" +
	"若字段缺失请置为 null。"

// Parse converts one raw address text into structured fields.
func (c *OpenAIClient) Parse(ctx context.Context, raw string) (*models.ParsedAddress, error) {
	hint, _ := json.Marshal(parseSchemaHint)
	user := fmt.Sprintf("请把以下地址解析为 JSON：\nraw=%q\n示例：%s", raw, hint)

	content, err := c.complete(ctx, parseSystemPrompt, user)
	if err != nil {
		return nil, err
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return nil, fmt.Errorf("parser returned malformed JSON: %w", err)
	}
	return buildParsed(raw, obj), nil
}

const batchSystemPrompt = "你是地址结构化解析器。请按输入顺序解析多个地址，并返回 JSON 数组，数组长度与输入一致。\n" +
	"每个元素须包含：province, city, district, road, road_no, aoi, building, floor, room, shop_name, " +
	"intersection(数组且长度为 2), direction, distance_m。\n" +
	"若字段缺失请填 null。只输出 JSON 数组，不要其他文字。"

// ParseBatch parses several addresses in one call, preserving input order.
func (c *OpenAIClient) ParseBatch(ctx context.Context, raws []string) ([]*models.ParsedAddress, error) {
	if len(raws) == 0 {
		return nil, nil
	}
	var lines strings.Builder
	for i, raw := range raws {
		fmt.Fprintf(&lines, "%d. %s\n", i+1, raw)
	}
	hint, _ := json.Marshal([]interface{}{parseSchemaHint})
	user := fmt.Sprintf("地址列表：\n%s示例输出：%s", lines.String(), hint)

	content, err := c.complete(ctx, batchSystemPrompt, user)
	if err != nil {
		return nil, err
	}
	var objs []map[string]interface{}
	if err := json.Unmarshal([]byte(content), &objs); err != nil {
		return nil, fmt.Errorf("batch parser returned malformed JSON: %w", err)
	}
	if len(objs) != len(raws) {
		return nil, fmt.Errorf("batch parser returned %d results for %d inputs", len(objs), len(raws))
	}
	out := make([]*models.ParsedAddress, len(raws))
	for i, obj := range objs {
		out[i] = buildParsed(raws[i], obj)
	}
	return out, nil
}

// buildParsed coerces a decoded JSON object into a ParsedAddress. Numeric
// fields that arrive as numbers are stringified; malformed intersections are
// treated as absent.
func buildParsed(raw string, obj map[string]interface{}) *models.ParsedAddress {
	p := &models.ParsedAddress{NormText: textutil.Normalize(raw)}

	str := func(key string) string {
		v, ok := obj[key]
		if !ok || v == nil {
			return ""
		}
		switch t := v.(type) {
		case string:
			return strings.TrimSpace(t)
		case float64:
			return strings.TrimSuffix(fmt.Sprintf("%v", t), ".0")
		default:
			return ""
		}
	}

	p.Province = str("province")
	p.City = str("city")
	p.District = str("district")
	p.Street = str("street")
	p.Road = str("road")
	p.RoadNo = str("road_no")
	p.AOI = str("aoi")
	p.Building = str("building")
	p.Unit = str("unit")
	p.Floor = str("floor")
	// Models occasionally echo the text's Chinese numeral ("二楼" -> "二").
	if n, ok := textutil.CNNumToInt(strings.TrimSuffix(strings.TrimSuffix(p.Floor, "楼"), "层")); ok {
		p.Floor = strconv.Itoa(n)
	}
	p.Room = str("room")
	p.ShopName = str("shop_name")
	p.Direction = str("direction")

	if arr, ok := obj["intersection"].([]interface{}); ok && len(arr) == 2 {
		a, okA := arr[0].(string)
		b, okB := arr[1].(string)
		if okA && okB && a != "" && b != "" {
			p.Intersection = &models.Intersection{a, b}
		}
	}
	if v, ok := obj["distance_m"].(float64); ok && v >= 0 {
		d := int(v)
		p.DistanceM = &d
	}
	return p
}
