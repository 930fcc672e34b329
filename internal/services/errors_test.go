package services_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"rustactions/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("exit status 5")
	err := services.Wrap(services.ErrSync, "steam", "app_update", "login failed", base)
	if !errors.Is(err, services.ErrSync) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	for _, fragment := range []string{"steam", "app_update", "login failed", "exit status 5"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in error string %q", fragment, err.Error())
		}
	}
}

func TestWrapNilMarkerDefaultsToIO(t *testing.T) {
	if err := services.Wrap(nil, "", "", "", nil); !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected ErrIO fallback, got %v", err)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{services.Validation("dispatch", "quantity must be at least 1"), http.StatusBadRequest},
		{services.Wrap(services.ErrNotFound, "items", "get", "stone_hatchet", nil), http.StatusNotFound},
		{services.Wrap(services.ErrSync, "steam", "sync", "", errors.New("boom")), http.StatusBadGateway},
		{services.Wrap(services.ErrIO, "items", "save", "", errors.New("disk full")), http.StatusInternalServerError},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := services.HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestIsStateAndMessage(t *testing.T) {
	err := services.Wrap(services.ErrState, "tasks", "stop", "anti_afk is not running", nil)
	if !services.IsState(err) {
		t.Fatal("expected state error")
	}
	if got := services.Message(err); got != "tasks: stop: anti_afk is not running" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := services.Message(errors.New("plain")); got != "plain" {
		t.Fatalf("unexpected plain message %q", got)
	}
}
