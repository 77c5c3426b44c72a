package redis

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/ragchat/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	err := s.Ping(context.Background())
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpPing {
		t.Fatalf("expected db.Error with op PING, got %v", err)
	}
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty addrs")
	}
}

func TestWaitForReady_RetriesUntilPong(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("PING")).
			Return(mock.Result(mock.RedisError("LOADING Redis is loading the dataset in memory"))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("PING")).
			Return(mock.Result(mock.RedisString("PONG"))),
	)

	if err := NewStoreForTest(c).WaitForReady(context.Background(), time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWaitForReady_TimeoutReportsLastError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(errors.New("connection refused"))).
		AnyTimes()

	err := NewStoreForTest(c).WaitForReady(context.Background(), 50*time.Millisecond)
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpPing {
		t.Fatalf("expected wrapped ping error, got %v", err)
	}
}

// --- index.go tests ---

func TestIndexExists(t *testing.T) {
	tests := []struct {
		name    string
		result  rueidis.RedisResult
		want    bool
		wantErr bool
	}{
		{"present", mock.Result(mock.RedisArray(mock.RedisString("index_name"), mock.RedisString("docs:idx"))), true, false},
		{"absent", mock.Result(mock.RedisError("Unknown Index name")), false, false},
		{"connection error", mock.ErrorResult(context.DeadlineExceeded), false, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)

			c.EXPECT().
				Do(gomock.Any(), mock.Match("FT.INFO", "docs:idx")).
				Return(tc.result)

			got, err := NewStoreForTest(c).IndexExists(context.Background(), "docs:idx")
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("IndexExists = %v, want %v", got, tc.want)
			}
			var dbErr *db.Error
			if tc.wantErr && (!errors.As(err, &dbErr) || dbErr.Op != db.OpIndexInfo) {
				t.Errorf("expected db.Error with op FT.INFO, got %v", err)
			}
		})
	}
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[1] == "idx"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2), // total
			mock.RedisString("doc:1"),
			mock.RedisArray(
				mock.RedisString("__vector_score"),
				mock.RedisString("0.1"), // distance 0.1 → similarity 0.9
				mock.RedisString("text"),
				mock.RedisString("hello"),
			),
			mock.RedisString("doc:2"),
			mock.RedisArray(
				mock.RedisString("__vector_score"),
				mock.RedisString("1.5"), // beyond 1 clamps to 0
				mock.RedisString("text"),
				mock.RedisString("world"),
			),
		)))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Vector:    []float32{0.1, 0.2},
		K:         10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 2 || len(result.Entries) != 2 {
		t.Fatalf("expected 2 entries, got total=%d entries=%d", result.Total, len(result.Entries))
	}
	first := result.Entries[0]
	if first.Key != "doc:1" {
		t.Errorf("expected key doc:1, got %s", first.Key)
	}
	if first.Score < 0.89 || first.Score > 0.91 {
		t.Errorf("expected score ~0.9, got %f", first.Score)
	}
	if first.Fields["text"] != "hello" {
		t.Errorf("expected text field hello, got %q", first.Fields["text"])
	}
	if _, ok := first.Fields["__vector_score"]; ok {
		t.Error("__vector_score should be removed from fields")
	}
	if result.Entries[1].Score != 0 {
		t.Errorf("expected clamped score 0, got %f", result.Entries[1].Score)
	}
}

func TestSearchKNN_CommandShape(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var captured []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			captured = cmd
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "docs:idx",
		Tags:         map[string]string{"namespace": "monai-docs"},
		Vector:       []float32{1},
		K:            5,
		ReturnFields: []string{"text", "source"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantQuery := `(@namespace:{monai\-docs})=>[KNN 5 @vector $BLOB AS __vector_score]`
	if captured[2] != wantQuery {
		t.Errorf("query = %q, want %q", captured[2], wantQuery)
	}
	if i := slices.Index(captured, "RETURN"); i < 0 || captured[i+1] != "3" || captured[i+4] != "__vector_score" {
		t.Errorf("unexpected RETURN clause in %v", captured)
	}
	if i := slices.Index(captured, "LIMIT"); i < 0 || captured[i+2] != "5" {
		t.Errorf("unexpected LIMIT clause in %v", captured)
	}
	if !slices.Contains(captured, "SORTBY") || captured[len(captured)-1] != "2" {
		t.Errorf("expected SORTBY and DIALECT 2 in %v", captured)
	}
}

func TestSearchKNN_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	s := NewStoreForTest(c)
	result, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx",
		Vector:    []float32{0.1},
		K:         10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(result.Entries))
	}
}

func TestSearchKNN_IndexNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "idx", Vector: []float32{1}, K: 1})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := NewStoreForTest(nil)
	tests := []struct {
		name string
		q    db.KNNQuery
	}{
		{"no index", db.KNNQuery{Vector: []float32{1}, K: 1}},
		{"no vector", db.KNNQuery{IndexName: "idx", K: 1}},
		{"zero k", db.KNNQuery{IndexName: "idx", Vector: []float32{1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.SearchKNN(context.Background(), &tc.q); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestVectorToBytes(t *testing.T) {
	b := vectorToBytes([]float32{1.0})
	// float32(1.0) little-endian: 00 00 80 3f
	if b != "\x00\x00\x80\x3f" {
		t.Errorf("unexpected encoding %q", b)
	}
}
