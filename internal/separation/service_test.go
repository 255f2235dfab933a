package separation

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"stemsplit/internal/engine"
)

type fakeEngine struct {
	name         string
	separateFunc func(ctx context.Context, req engine.Request) (engine.Stems, error)
}

func (f *fakeEngine) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeEngine) Separate(ctx context.Context, req engine.Request) (engine.Stems, error) {
	return f.separateFunc(ctx, req)
}

func mp3Bytes() []byte {
	return append([]byte("ID3"), make([]byte, 16)...)
}

func TestSeparateDetectsFormatAndPropagatesAudio(t *testing.T) {
	audio := mp3Bytes()

	var captured engine.Request
	eng := &fakeEngine{separateFunc: func(ctx context.Context, req engine.Request) (engine.Stems, error) {
		captured = req
		return engine.Stems{Vocals: []byte("vox"), Accompaniment: []byte("band")}, nil
	}}

	svc := New(eng, time.Second, 1)
	stems, err := svc.Separate(context.Background(), audio)
	if err != nil {
		t.Fatalf("Separate() error = %v", err)
	}
	if !bytes.Equal(captured.Audio, audio) {
		t.Fatal("audio bytes were not passed through unchanged")
	}
	if captured.MIME != "audio/mpeg" {
		t.Fatalf("unexpected MIME: %q", captured.MIME)
	}
	if captured.Ext != ".mp3" {
		t.Fatalf("unexpected extension: %q", captured.Ext)
	}
	if string(stems.Vocals) != "vox" || string(stems.Accompaniment) != "band" {
		t.Fatalf("unexpected stems: %q / %q", stems.Vocals, stems.Accompaniment)
	}
}

func TestSeparateFallsBackToOctetStream(t *testing.T) {
	var captured engine.Request
	eng := &fakeEngine{separateFunc: func(ctx context.Context, req engine.Request) (engine.Stems, error) {
		captured = req
		return engine.Stems{Vocals: []byte{}, Accompaniment: []byte{}}, nil
	}}

	svc := New(eng, time.Second, 1)
	if _, err := svc.Separate(context.Background(), []byte{0x00, 0x01, 0x02, 0x03}); err != nil {
		t.Fatalf("Separate() error = %v", err)
	}
	if captured.MIME != "application/octet-stream" {
		t.Fatalf("unexpected MIME: %q", captured.MIME)
	}
}

func TestSeparateTimesOut(t *testing.T) {
	eng := &fakeEngine{separateFunc: func(ctx context.Context, req engine.Request) (engine.Stems, error) {
		<-ctx.Done()
		return engine.Stems{}, ctx.Err()
	}}

	svc := New(eng, 20*time.Millisecond, 1)
	_, err := svc.Separate(context.Background(), mp3Bytes())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestSeparateLimitsConcurrency(t *testing.T) {
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	eng := &fakeEngine{separateFunc: func(ctx context.Context, req engine.Request) (engine.Stems, error) {
		entered <- struct{}{}
		select {
		case <-release:
			return engine.Stems{Vocals: []byte("v"), Accompaniment: []byte("a")}, nil
		case <-ctx.Done():
			return engine.Stems{}, ctx.Err()
		}
	}}

	svc := New(eng, time.Minute, 1)

	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Separate(context.Background(), mp3Bytes())
		firstErr <- err
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := svc.Separate(ctx, mp3Bytes())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected second call to time out waiting for a slot, got %v", err)
	}

	close(release)
	if err := <-firstErr; err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if len(entered) != 0 {
		t.Fatal("second call reached the engine despite the concurrency limit")
	}
}

func TestSeparateRejectsIncompleteStems(t *testing.T) {
	eng := &fakeEngine{separateFunc: func(ctx context.Context, req engine.Request) (engine.Stems, error) {
		return engine.Stems{Vocals: []byte("v")}, nil
	}}

	svc := New(eng, time.Second, 1)
	_, err := svc.Separate(context.Background(), mp3Bytes())
	if err == nil {
		t.Fatal("expected error")
	}
	var engErr *engine.Error
	if !errors.As(err, &engErr) {
		t.Fatalf("expected *engine.Error, got %T", err)
	}
	if engErr.Detail != "engine returned incomplete stems" {
		t.Fatalf("unexpected detail: %q", engErr.Detail)
	}
}

func TestSeparatePreservesEmptyStems(t *testing.T) {
	eng := &fakeEngine{separateFunc: func(ctx context.Context, req engine.Request) (engine.Stems, error) {
		return engine.Stems{Vocals: []byte{}, Accompaniment: []byte{}}, nil
	}}

	svc := New(eng, time.Second, 1)
	stems, err := svc.Separate(context.Background(), []byte{})
	if err != nil {
		t.Fatalf("Separate() error = %v", err)
	}
	if stems.Vocals == nil || stems.Accompaniment == nil {
		t.Fatal("empty stems should survive as empty, not nil")
	}
}

func TestSeparateReportsOutcomes(t *testing.T) {
	type observation struct {
		engine  string
		format  string
		outcome string
	}
	var seen []observation

	eng := &fakeEngine{separateFunc: func(ctx context.Context, req engine.Request) (engine.Stems, error) {
		return engine.Stems{Vocals: []byte("v"), Accompaniment: []byte("a")}, nil
	}}
	svc := New(eng, time.Second, 1, WithObserver(func(engineName, format, outcome string, duration time.Duration) {
		seen = append(seen, observation{engineName, format, outcome})
	}))

	if _, err := svc.Separate(context.Background(), mp3Bytes()); err != nil {
		t.Fatalf("Separate() error = %v", err)
	}

	eng.separateFunc = func(ctx context.Context, req engine.Request) (engine.Stems, error) {
		return engine.Stems{}, &engine.Error{Engine: "fake", Detail: "boom"}
	}
	if _, err := svc.Separate(context.Background(), mp3Bytes()); err == nil {
		t.Fatal("expected error")
	}

	want := []observation{
		{"fake", "audio/mpeg", "ok"},
		{"fake", "audio/mpeg", "error"},
	}
	if len(seen) != len(want) {
		t.Fatalf("expected %d observations, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("observation %d = %+v, want %+v", i, seen[i], want[i])
		}
	}
}
