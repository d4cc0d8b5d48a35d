package dedupe

import "testing"

// TestSeen 测试基本去重
func TestSeen(t *testing.T) {
	s := NewSet(10)

	if s.Seen("a") {
		t.Fatal("first occurrence must not be seen")
	}
	if !s.Seen("a") {
		t.Fatal("second occurrence must be seen")
	}
	if s.Seen("") {
		t.Fatal("empty ID must never count as seen")
	}
	if s.Seen("") {
		t.Fatal("empty ID must never count as seen")
	}
}

// TestEviction 测试容量上限与先进先出淘汰
func TestEviction(t *testing.T) {
	s := NewSet(2)

	s.Seen("a")
	s.Seen("b")
	s.Seen("c") // 淘汰 a

	if s.Len() != 2 {
		t.Fatalf("set must stay at capacity, got %d", s.Len())
	}
	if s.Seen("a") {
		t.Fatal("evicted ID must be forgotten")
	}
	if !s.Seen("c") {
		t.Fatal("recent ID must still be remembered")
	}
}
