package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClient_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req lookupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.ProductIDs) != 2 {
			t.Fatalf("expected 2 product ids, got %d", len(req.ProductIDs))
		}
		json.NewEncoder(w).Encode([]Info{{ProductID: "p1", Summary: "great pick"}})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, srv.Client())
	out, err := c.Lookup(context.Background(), []string{"p1", "p2"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if len(out) != 1 || out[0].ProductID != "p1" {
		t.Fatalf("unexpected result %+v", out)
	}
}
