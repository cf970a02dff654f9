package pubsub

import "testing"

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"shop", "orders", "projects/shop/topics/orders"},
		{"shop", " orders ", "projects/shop/topics/orders"},
		{"shop", "projects/other/topics/events", "projects/other/topics/events"},
		{"", "orders", ""},
		{"shop", "", ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("orders") != nil {
		t.Fatal("expected nil publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Ping(t.Context()); err == nil {
		t.Fatal("expected ping error")
	}
}
