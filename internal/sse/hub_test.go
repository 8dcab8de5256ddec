package sse

import (
	"encoding/json"
	"testing"
	"time"

	"posenet-live-go/internal/core/pose"
)

func TestHubBroadcastReachesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := make(Client, 10)
	hub.Register(client)
	defer hub.Unregister(client)

	// Blocking send straight into the hub loop so the test cannot race
	// the non-blocking Broadcast drop path
	hub.broadcast <- []byte("hello")

	select {
	case msg := <-client:
		if string(msg) != "hello" {
			t.Errorf("received %q, want %q", msg, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broadcast")
	}
}

func TestBroadcastFramePayload(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := make(Client, 10)
	hub.Register(client)
	defer hub.Unregister(client)

	poses := []pose.Pose{
		{Score: 0.9},
		{Score: 0.7},
	}
	// BroadcastFrame drops when the hub loop is mid-delivery; retry until
	// the client sees a message
	deadline := time.After(time.Second)
	for {
		hub.BroadcastFrame(poses)
		select {
		case <-deadline:
			t.Fatal("timed out waiting for frame broadcast")
		default:
		}
		if len(client) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case msg := <-client:
		var data FrameData
		if err := json.Unmarshal(msg, &data); err != nil {
			t.Fatalf("invalid JSON payload: %v", err)
		}
		if data.PoseCount != 2 {
			t.Errorf("pose_count = %d, want 2", data.PoseCount)
		}
		if len(data.Poses) != 2 {
			t.Errorf("poses length = %d, want 2", len(data.Poses))
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame broadcast")
	}
}

func TestSlowClientDoesNotBlockBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Unbuffered client that never reads
	slow := make(Client)
	hub.Register(slow)

	fast := make(Client, 10)
	hub.Register(fast)

	hub.broadcast <- []byte("frame")

	select {
	case msg := <-fast:
		if string(msg) != "frame" {
			t.Errorf("received %q, want %q", msg, "frame")
		}
	case <-time.After(time.Second):
		t.Fatal("slow client blocked delivery to fast client")
	}
}
