package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/yejiban/yejiban/pkg/errors"
	"github.com/yejiban/yejiban/pkg/importer"
	"github.com/yejiban/yejiban/pkg/model"
)

// 测试排名端点：三轴独立排名随响应返回
func TestStatsHandlerRank(t *testing.T) {
	h := NewStatsHandler(nil, nil)

	body, _ := json.Marshal(RankRequest{Records: []*model.EmployeePerformance{
		{EmpID: "a", EmpName: "王小明", TotalRevenue: 9000, FollowupRevenue: 100, AvgOrderValue: 1500},
		{EmpID: "b", EmpName: "李芳", TotalRevenue: 5000, FollowupRevenue: 900, AvgOrderValue: 2500},
	}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stats/rank", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Rank(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool                         `json:"success"`
		Data    []*model.EmployeePerformance `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if !resp.Success || len(resp.Data) != 2 {
		t.Fatalf("响应 = %+v", resp)
	}

	if resp.Data[0].RevenueRank != 1 || resp.Data[0].FollowupRank != 2 || resp.Data[0].ValueRank != 2 {
		t.Errorf("王小明三轴排名 = %d/%d/%d, want 1/2/2",
			resp.Data[0].RevenueRank, resp.Data[0].FollowupRank, resp.Data[0].ValueRank)
	}
}

// 测试请求体无效时返回统一错误信封
func TestStatsHandlerRankBadBody(t *testing.T) {
	h := NewStatsHandler(nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stats/rank", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	h.Rank(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("状态码 = %d, want 400", rec.Code)
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if resp.Success || resp.Code != string(apperrors.CodeInvalidInput) {
		t.Errorf("错误信封 = %+v", resp)
	}
}

// 测试超卖补救端点
func TestImportHandlerRedistribute(t *testing.T) {
	h := NewImportHandler(nil, nil, nil, nil)

	body, _ := json.Marshal(RedistributeRequest{Days: []*importer.DayLoad{
		{Date: "2024-03-14", TotalDispatches: 5, DispatchSales: 3},
		{Date: "2024-03-15", TotalDispatches: 4, DispatchSales: 6},
	}})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/redistribute", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Redistribute(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("状态码 = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool                 `json:"success"`
		Data    RedistributeResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if resp.Data.Unplaced != 0 {
		t.Errorf("Unplaced = %d, want 0", resp.Data.Unplaced)
	}
	if resp.Data.Days[0].DispatchSales != 5 || resp.Data.Days[1].DispatchSales != 4 {
		t.Errorf("补救结果 = %+v", resp.Data.Days)
	}
}
