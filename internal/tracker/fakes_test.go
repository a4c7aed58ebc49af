package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"floatwatch/internal/csfloat"
)

// fakeFetcher answers by def_index.
type fakeFetcher struct {
	mu      sync.Mutex
	byDef   map[int64][]csfloat.Listing
	failDef map[int64]bool
	calls   []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{byDef: map[int64][]csfloat.Listing{}, failDef: map[int64]bool{}}
}

func (f *fakeFetcher) set(def int64, ls ...csfloat.Listing) {
	f.mu.Lock()
	f.byDef[def] = ls
	f.mu.Unlock()
}

func (f *fakeFetcher) fail(def int64) {
	f.mu.Lock()
	f.failDef[def] = true
	f.mu.Unlock()
}

func (f *fakeFetcher) Fetch(_ context.Context, q csfloat.QueryParams) csfloat.FetchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q.Encode())
	v, _ := q.Get("def_index")
	def, _ := v.Int64()
	if f.failDef[def] {
		return csfloat.FetchResult{Status: csfloat.StatusDegraded, HTTPStatus: 500, Err: errors.New("500")}
	}
	return csfloat.FetchResult{Status: csfloat.StatusOK, HTTPStatus: 200, Listings: append([]csfloat.Listing(nil), f.byDef[def]...)}
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, n Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, n)
	return nil
}

func (d *fakeDispatcher) all() []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Notification(nil), d.sent...)
}

func listings(prefix string, n int) []csfloat.Listing {
	out := make([]csfloat.Listing, n)
	for i := range out {
		out[i] = csfloat.Listing{ID: fmt.Sprintf("%s-%d", prefix, i), Price: 100, Item: csfloat.Item{MarketHashName: prefix}}
	}
	return out
}
