package postal

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestLookup_Success(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pincode/560001" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"Status":"Success","PostOffice":[
			{"Name":"Bangalore GPO","District":"Bangalore","State":"Karnataka"},
			{"Name":"Vidhana Soudha","District":"Bangalore","State":"Karnataka"},
			{"Name":"Bangalore GPO","District":"Bangalore","State":"Karnataka"}
		]}]`))
	})

	c := NewClient(srv.URL, time.Second)
	res, err := c.Lookup(context.Background(), "560001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.District != "Bangalore" || res.State != "Karnataka" {
		t.Errorf("unexpected result: %+v", res)
	}
	// duplicate office names are collapsed
	if len(res.Cities) != 2 {
		t.Errorf("expected 2 cities, got %v", res.Cities)
	}
}

func TestLookup_NotFound(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"Status":"Error","PostOffice":null}]`))
	})

	c := NewClient(srv.URL, time.Second)
	_, err := c.Lookup(context.Background(), "999999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLookup_InvalidCode(t *testing.T) {
	c := NewClient("http://unused", time.Second)
	for _, code := range []string{"", "12345", "1234567", "12a456"} {
		if _, err := c.Lookup(context.Background(), code); !errors.Is(err, ErrInvalidCode) {
			t.Errorf("code %q: expected ErrInvalidCode, got %v", code, err)
		}
	}
}

func TestLookup_ServerError(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := NewClient(srv.URL, time.Second)
	_, err := c.Lookup(context.Background(), "560001")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidCode) {
		t.Errorf("transport failure should not map to a sentinel, got %v", err)
	}
}

func TestValidCode(t *testing.T) {
	if !ValidCode("560001") {
		t.Error("560001 should be valid")
	}
	for _, code := range []string{"56000", "5600011", "56000x", ""} {
		if ValidCode(code) {
			t.Errorf("%q should be invalid", code)
		}
	}
}
