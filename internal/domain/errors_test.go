package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestTransientStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{400, false},
		{401, false},
		{404, false},
		{422, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
	}
	for _, tc := range tests {
		if got := TransientStatus(tc.code); got != tc.want {
			t.Errorf("TransientStatus(%d) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestRemoteError(t *testing.T) {
	svc := NewServiceError("pinecone", "embed", 503, "unavailable")
	if !IsTransient(svc) || !errors.Is(svc, ErrRemoteService) {
		t.Errorf("service error must be transient: %v", svc)
	}
	if svc.Error() != "pinecone embed: remote service error (status 503): unavailable" {
		t.Errorf("unexpected message %q", svc.Error())
	}

	rej := NewRejectedError("openai", "chat", 400, "bad request")
	if IsTransient(rej) || !errors.Is(rej, ErrRemoteRejected) {
		t.Errorf("rejected error must not be transient: %v", rej)
	}

	noStatus := NewServiceError("redis", "query", 0, "connection reset")
	if noStatus.Error() != "redis query: remote service error: connection reset" {
		t.Errorf("unexpected message %q", noStatus.Error())
	}

	var re *RemoteError
	if !errors.As(fmt.Errorf("wrapped: %w", rej), &re) || re.StatusCode != 400 {
		t.Errorf("expected RemoteError with status 400, got %+v", re)
	}
}

func TestIsTransient_OtherErrors(t *testing.T) {
	for _, err := range []error{
		nil,
		errors.New("plain"),
		context.Canceled,
		ContractViolation("pinecone", "missing %s", "data"),
	} {
		if IsTransient(err) {
			t.Errorf("IsTransient(%v) = true", err)
		}
	}
}

func TestSearchError(t *testing.T) {
	cause := NewServiceError("pinecone", "rerank", 500, "boom")
	err := NewSearchError("rerank", cause)

	if !errors.Is(err, ErrSearchFailed) {
		t.Error("expected errors.Is(ErrSearchFailed)")
	}
	if !errors.Is(err, ErrRemoteService) {
		t.Error("expected the cause to stay reachable")
	}
	if !strings.HasPrefix(err.Error(), "search failed: rerank: ") {
		t.Errorf("unexpected message %q", err.Error())
	}

	var se *SearchError
	if !errors.As(err, &se) || se.Stage != "rerank" {
		t.Errorf("expected SearchError at stage rerank, got %+v", se)
	}
}

func TestContractViolation(t *testing.T) {
	err := ContractViolation("rerank_api", "index %d out of range", 7)
	if !errors.Is(err, ErrContractViolation) {
		t.Fatal("expected ErrContractViolation")
	}
	if err.Error() != "rerank_api: index 7 out of range: contract violation" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
