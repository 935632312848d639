package utils

import (
	"math"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNewPaginationParamsClamps(t *testing.T) {
	p := NewPaginationParams(0, -5, "driver_secret", "sideways", "  tash ")
	if p.Limit != DefaultPageSize || p.Offset != 0 {
		t.Fatalf("expected defaults, got limit=%d offset=%d", p.Limit, p.Offset)
	}
	if p.Sort != "created_at" || p.Order != "desc" {
		t.Fatalf("expected created_at desc, got %s %s", p.Sort, p.Order)
	}
	if p.Search != "tash" {
		t.Fatalf("expected trimmed search, got %q", p.Search)
	}

	if p := NewPaginationParams(1000, 10, "start_at", "asc", ""); p.Limit != MaxPageSize || p.Sort != "start_at" || p.Order != "asc" {
		t.Fatalf("unexpected params %+v", p)
	}
}

func TestWindow(t *testing.T) {
	p := NewPaginationParams(10, 25, "", "", "")
	if start, end := p.Window(30); start != 25 || end != 30 {
		t.Fatalf("expected [25,30), got [%d,%d)", start, end)
	}
	if start, end := p.Window(5); start != 5 || end != 5 {
		t.Fatalf("expected empty window, got [%d,%d)", start, end)
	}
}

func TestCreatePaginationMeta(t *testing.T) {
	p := NewPaginationParams(10, 0, "", "", "")
	if meta := CreatePaginationMeta(p, 11); !meta.HasNext {
		t.Fatalf("expected another page")
	}
	if meta := CreatePaginationMeta(p, 10); meta.HasNext {
		t.Fatalf("expected last page")
	}
}

func TestHugeOffsetIsAnEmptyLastPage(t *testing.T) {
	p := NewPaginationParams(MaxPageSize, math.MaxInt-1, "", "", "")
	if start, end := p.Window(3); start != 3 || end != 3 {
		t.Fatalf("expected empty window, got [%d,%d)", start, end)
	}
	if meta := CreatePaginationMeta(p, 3); meta.HasNext {
		t.Fatalf("expected no next page past the end, got %+v", meta)
	}

	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/offers?offset="+strconv.Itoa(math.MaxInt), nil)
	if meta := CreatePaginationMeta(GetPaginationParams(c), 3); meta.HasNext {
		t.Fatalf("expected no next page for offset %d", math.MaxInt)
	}
}

func TestGetPaginationParamsFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/offers?limit=5&offset=10&order=asc&search=bukhara", nil)

	p := GetPaginationParams(c)
	if p.Limit != 5 || p.Offset != 10 || p.Order != "asc" || p.Search != "bukhara" {
		t.Fatalf("unexpected params %+v", p)
	}
}
