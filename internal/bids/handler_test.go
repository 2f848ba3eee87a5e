package bids

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"freight-service/internal/domain"
	"freight-service/pkg/jwt"
	"freight-service/pkg/logger"
)

func TestBidRoutes(t *testing.T) {
	if err := jwt.Init("bids-secret", time.Hour); err != nil {
		t.Fatal(err)
	}
	f := newFixture(t)
	h := NewHandler(f.svc, logger.NewNop())

	accepted := ""
	root := chi.NewRouter()
	root.Use(jwt.OptionalAuth)
	root.Mount("/ads/{id}/bids", h.AdRoutes(func(w http.ResponseWriter, r *http.Request) {
		accepted = chi.URLParam(r, "id") + "/" + chi.URLParam(r, "bidID")
		w.WriteHeader(http.StatusCreated)
	}))
	root.Mount("/bids", h.Routes())

	customer, _ := jwt.Generate(f.customer.UserID, "+1", false)
	driver, _ := jwt.Generate(f.driver.UserID, "+2", false)

	call := func(method, target, token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		root.ServeHTTP(rec, req)
		return rec
	}
	data := func(rec *httptest.ResponseRecorder, dst any) {
		t.Helper()
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatal(err)
		}
		if err := json.Unmarshal(env.Data, dst); err != nil {
			t.Fatal(err)
		}
	}

	if rec := call(http.MethodPost, "/ads/ad-1/bids", driver, `{"role":"driver","cost":-1}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative cost = %d", rec.Code)
	}
	if rec := call(http.MethodPost, "/ads/ad-1/bids", driver, `{"role":"driver","cost":75.555,"vehicle_id":"`+f.truck.ID+`"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("sub-cent cost = %d", rec.Code)
	}
	if rec := call(http.MethodPost, "/ads/ad-1/bids", customer, `{"role":"driver","cost":75}`); rec.Code != http.StatusForbidden {
		t.Fatalf("poster bidding = %d", rec.Code)
	}

	rec := call(http.MethodPost, "/ads/ad-1/bids", driver, `{"role":"driver","cost":75,"vehicle_id":"`+f.truck.ID+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("place = %d %s", rec.Code, rec.Body)
	}
	var bid domain.Bid
	data(rec, &bid)
	if bid.AdID != "ad-1" || bid.Cost != 75 || bid.Bidder.UserID != f.driver.UserID {
		t.Fatalf("bid = %+v", bid)
	}

	var seen []domain.Bid
	data(call(http.MethodGet, "/ads/ad-1/bids", customer, ""), &seen)
	if len(seen) != 1 || seen[0].ID != bid.ID {
		t.Fatalf("poster sees %+v", seen)
	}
	var mine []domain.Bid
	data(call(http.MethodGet, "/bids/mine", driver, ""), &mine)
	if len(mine) != 1 {
		t.Fatalf("mine = %+v", mine)
	}

	if rec := call(http.MethodPost, "/ads/ad-1/bids/"+bid.ID+"/accept", customer, ""); rec.Code != http.StatusCreated || accepted != "ad-1/"+bid.ID {
		t.Fatalf("accept route = %d %q", rec.Code, accepted)
	}
}
