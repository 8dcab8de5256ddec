package pose

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestMapToScreenIdentity(t *testing.T) {
	dims := Dims{Width: 640, Height: 480}

	coords := []Point{
		{0, 0},
		{320, 240},
		{639, 479},
		{12.5, 300.25},
	}

	for _, c := range coords {
		got := MapToScreen(c, dims, dims, Offset{}, false)
		if math.Abs(got.X-c.X) > eps || math.Abs(got.Y-c.Y) > eps {
			t.Errorf("identity mapping changed (%v, %v) to (%v, %v)", c.X, c.Y, got.X, got.Y)
		}
	}
}

func TestMapToScreenMirrorFlipsXOnly(t *testing.T) {
	input := Dims{Width: 400, Height: 300}
	screen := Dims{Width: 800, Height: 600}
	offset := Offset{X: 20, Y: 10}

	coords := []Point{
		{0, 0},
		{200, 150},
		{399, 299},
		{55.5, 17.25},
	}

	for _, c := range coords {
		plain := MapToScreen(c, input, screen, offset, false)
		mirrored := MapToScreen(c, input, screen, offset, true)

		if math.Abs(mirrored.Y-plain.Y) > eps {
			t.Errorf("mirroring changed y for %v: %v != %v", c, mirrored.Y, plain.Y)
		}

		// Reflexion an der horizontalen Bildschirmmitte
		want := float64(screen.Width) - plain.X
		if math.Abs(mirrored.X-want) > eps {
			t.Errorf("mirroring of x for %v: got %v, want %v", c, mirrored.X, want)
		}
	}
}

func TestMapToScreenScalesAndOffsets(t *testing.T) {
	input := Dims{Width: 200, Height: 100}
	screen := Dims{Width: 400, Height: 400}
	offset := Offset{X: 10, Y: 5}

	got := MapToScreen(Point{X: 40, Y: 20}, input, screen, offset, false)

	// (40+10) * 400/200 = 100, (20+5) * 400/100 = 100
	if math.Abs(got.X-100) > eps || math.Abs(got.Y-100) > eps {
		t.Errorf("got (%v, %v), want (100, 100)", got.X, got.Y)
	}
}

func TestCropOffsetTruncatesTowardZero(t *testing.T) {
	tests := []struct {
		source Dims
		input  Dims
		want   Offset
	}{
		{Dims{1280, 720}, Dims{640, 360}, Offset{320, 180}},
		{Dims{641, 481}, Dims{640, 480}, Offset{0, 0}},
		{Dims{643, 483}, Dims{640, 480}, Offset{1, 1}},
		{Dims{640, 480}, Dims{640, 480}, Offset{0, 0}},
	}

	for _, tc := range tests {
		got := CropOffset(tc.source, tc.input)
		if got != tc.want {
			t.Errorf("CropOffset(%v, %v) = %v, want %v", tc.source, tc.input, got, tc.want)
		}
	}
}

func TestRescaleInPlaceMutatesAllKeypoints(t *testing.T) {
	poses := []Pose{
		{Keypoints: []Keypoint{
			{Part: Nose, Position: Point{X: 10, Y: 10}, Confidence: 0.9},
			{Part: LeftEye, Position: Point{X: 20, Y: 20}, Confidence: 0.8},
		}},
	}

	input := Dims{Width: 100, Height: 100}
	screen := Dims{Width: 200, Height: 200}

	RescaleInPlace(poses, input, screen, Offset{}, false)

	if poses[0].Keypoints[0].Position.X != 20 || poses[0].Keypoints[1].Position.Y != 40 {
		t.Errorf("keypoints not rescaled in place: %+v", poses[0].Keypoints)
	}
	if poses[0].Keypoints[0].Confidence != 0.9 {
		t.Errorf("confidence must not change during rescale")
	}
}
