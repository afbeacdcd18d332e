// Package client 封装外部协作服务的 HTTP 客户端
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/yejiban/yejiban/internal/config"
	"github.com/yejiban/yejiban/internal/metrics"
	"github.com/yejiban/yejiban/pkg/analysis"
)

// AdvisorClient AI 顾问服务客户端，实现 analysis.Advisor
//
// 顾问服务是黑盒协作方：这里只负责传输与解码，分类语义
// （模糊匹配、降级）全部在 analysis 包内处理
type AdvisorClient struct {
	baseURL string
	model   string
	http    *http.Client
}

// NewAdvisorClient 创建顾问客户端
func NewAdvisorClient(cfg config.AdvisorConfig) *AdvisorClient {
	return &AdvisorClient{
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// adviseRequest 顾问服务请求体
type adviseRequest struct {
	Model     string                   `json:"model"`
	Employees []analysis.AdviceRequest `json:"employees"`
}

// adviseResponse 顾问服务响应体
type adviseResponse struct {
	Results []analysis.AdviceResult `json:"results"`
}

// Advise 调用顾问服务做分类与建议
func (c *AdvisorClient) Advise(ctx context.Context, reqs []analysis.AdviceRequest) ([]analysis.AdviceResult, error) {
	if c.baseURL == "" {
		metrics.RecordAdvisorFailure()
		return nil, fmt.Errorf("顾问服务未配置")
	}

	body, err := json.Marshal(adviseRequest{Model: c.model, Employees: reqs})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/advise", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.RecordAdvisorFailure()
		return nil, fmt.Errorf("调用顾问服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordAdvisorFailure()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("顾问服务返回 %d: %s", resp.StatusCode, string(data))
	}

	var out adviseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.RecordAdvisorFailure()
		return nil, fmt.Errorf("解析顾问响应失败: %w", err)
	}

	return out.Results, nil
}
