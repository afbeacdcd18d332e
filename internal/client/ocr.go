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
	"github.com/yejiban/yejiban/pkg/importer"
)

// OCRClient 表格截图识别服务客户端
//
// 识别是尽力而为：单元格级错误串由 importer 清洗归零，
// 整图失败时返回错误由调用方提示改用手工粘贴
type OCRClient struct {
	baseURL string
	http    *http.Client
}

// NewOCRClient 创建识别客户端
func NewOCRClient(cfg config.OCRConfig) *OCRClient {
	return &OCRClient{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// ocrRequest 识别请求体（图片 base64）
type ocrRequest struct {
	Image string `json:"image"`
}

// ocrResponse 识别响应体，单元格以原始字符串返回
type ocrResponse struct {
	Rows []ocrRow `json:"rows"`
}

type ocrRow struct {
	Name            string `json:"name"`
	Date            string `json:"date"`
	TotalDispatches string `json:"total_dispatches"`
	DispatchSales   string `json:"dispatch_sales"`
	FollowupSales   string `json:"followup_sales"`
	RenewalSales    string `json:"renewal_sales"`
	TotalRevenue    string `json:"total_revenue"`
}

// Recognize 识别表格截图并清洗为导入行
func (c *OCRClient) Recognize(ctx context.Context, imageBase64 string) ([]*importer.Row, error) {
	if c.baseURL == "" {
		metrics.RecordOCRFailure()
		return nil, fmt.Errorf("识别服务未配置")
	}

	body, err := json.Marshal(ocrRequest{Image: imageBase64})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/recognize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		metrics.RecordOCRFailure()
		return nil, fmt.Errorf("调用识别服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordOCRFailure()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("识别服务返回 %d: %s", resp.StatusCode, string(data))
	}

	var out ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		metrics.RecordOCRFailure()
		return nil, fmt.Errorf("解析识别响应失败: %w", err)
	}

	rows := make([]*importer.Row, 0, len(out.Rows))
	for _, raw := range out.Rows {
		rows = append(rows, &importer.Row{
			Name:            raw.Name,
			Date:            raw.Date,
			TotalDispatches: int(importer.SanitizeInt(raw.TotalDispatches)),
			DispatchSales:   int(importer.SanitizeInt(raw.DispatchSales)),
			FollowupSales:   int(importer.SanitizeInt(raw.FollowupSales)),
			RenewalSales:    int(importer.SanitizeInt(raw.RenewalSales)),
			TotalRevenue:    importer.SanitizeInt(raw.TotalRevenue),
		})
	}

	return rows, nil
}
