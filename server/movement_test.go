package server

import "testing"

func TestBoxesOverlapStrict(t *testing.T) {
	cases := []struct {
		name                           string
		ax, ay, aw, ah, bx, by, bw, bh int
		want                           bool
	}{
		{"inside", 6, 6, 2, 2, 5, 5, 10, 10, true},
		{"corner overlap", 4, 4, 2, 2, 5, 5, 10, 10, true},
		{"edge touch right", 3, 5, 2, 2, 5, 5, 10, 10, false},
		{"edge touch bottom", 5, 3, 2, 2, 5, 5, 10, 10, false},
		{"corner touch", 3, 3, 2, 2, 5, 5, 10, 10, false},
		{"disjoint", 0, 0, 2, 2, 5, 5, 10, 10, false},
		{"x overlap only", 6, 0, 2, 2, 5, 5, 10, 10, false},
	}
	for _, c := range cases {
		if got := boxesOverlap(c.ax, c.ay, c.aw, c.ah, c.bx, c.by, c.bw, c.bh); got != c.want {
			t.Errorf("%s: overlap = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestCollides(t *testing.T) {
	s := newSpace("g", 20, 20, []Element{{ID: "e", X: 5, Y: 5, Width: 4, Height: 4}}, nil)

	if !s.collides(5, 5) {
		t.Errorf("inside the element should collide")
	}
	if s.collides(3, 5) {
		t.Errorf("touching the element edge must not collide")
	}
	if s.collides(0, 0) {
		t.Errorf("free cell should not collide")
	}
	// 隐式边界
	if !s.collides(-1, 0) || !s.collides(0, -1) {
		t.Errorf("negative coordinates should collide with the boundary")
	}
	if !s.collides(19, 0) || !s.collides(0, 19) {
		t.Errorf("avatar footprint sticking out of the grid should collide")
	}
	if s.collides(18, 18) {
		t.Errorf("avatar flush with the far edge should fit")
	}
}
