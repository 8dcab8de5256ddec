package pipeline

import (
	"context"
	"image"
	"math"
	"testing"

	"posenet-live-go/config"
	"posenet-live-go/internal/core/pose"
	"posenet-live-go/internal/imaging"
)

// Fakes für die Kollaborateure der Pipeline

type fakeSource struct {
	dims  pose.Dims
	reads int
}

func (f *fakeSource) Read(ctx context.Context) (*image.RGBA, error) {
	f.reads++
	return image.NewRGBA(image.Rect(0, 0, f.dims.Width, f.dims.Height)), nil
}

type fakeProcessor struct {
	inputDims  pose.Dims
	lastOffset pose.Offset
}

func (f *fakeProcessor) InputDims(src pose.Dims, targetSize int) pose.Dims {
	return f.inputDims
}

func (f *fakeProcessor) CropNormalize(src *imaging.Buffer, input pose.Dims, offset pose.Offset) (*imaging.Tensor, error) {
	f.lastOffset = offset
	return &imaging.Tensor{Data: make([]float32, input.Width*input.Height*3), Dims: input}, nil
}

type fakeRunner struct {
	constrained   pose.Dims
	runs          int
	decodes       int
	lastParams    DecodeParams
	poses         []pose.Pose
	tensorAtRun   *imaging.Tensor
	releasedAtRun bool
}

func (f *fakeRunner) ConstrainDims(input pose.Dims) pose.Dims {
	f.constrained = input
	return input
}

func (f *fakeRunner) Run(ctx context.Context, t *imaging.Tensor) error {
	f.runs++
	f.tensorAtRun = t
	f.releasedAtRun = t.Data == nil
	return nil
}

func (f *fakeRunner) DecodePoses(ctx context.Context, params DecodeParams) ([]pose.Pose, error) {
	f.decodes++
	f.lastParams = params
	// Posen pro Frame frisch erzeugen, wie es der echte Runner tut
	out := make([]pose.Pose, len(f.poses))
	for i, p := range f.poses {
		kps := make([]pose.Keypoint, len(p.Keypoints))
		copy(kps, p.Keypoints)
		out[i] = pose.Pose{Keypoints: kps, Score: p.Score}
	}
	return out, nil
}

type fakeVisualizer struct {
	renders       int
	lastPoses     []pose.Pose
	lastThreshold float64
}

func (f *fakeVisualizer) Render(frame *image.RGBA, poses []pose.Pose, threshold float64) {
	f.renders++
	f.lastPoses = poses
	f.lastThreshold = threshold
}

type fakeSink struct {
	counts []int
}

func (f *fakeSink) SetPoseCount(n int) {
	f.counts = append(f.counts, n)
}

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			TargetSize:          360,
			ConfidenceThreshold: 0.7,
		},
		Display: config.DisplayConfig{Width: 1280, Height: 720},
		Inference: config.InferenceConfig{
			ScoreThreshold: 0.25,
			NMSRadius:      100,
			MaxPoses:       20,
			MultiPose:      true,
		},
	}
}

func TestTickSkipsOnMissingRunner(t *testing.T) {
	vis := &fakeVisualizer{}
	sink := &fakeSink{}
	o := New(testConfig(),
		&fakeSource{dims: pose.Dims{Width: 640, Height: 480}},
		&fakeProcessor{inputDims: pose.Dims{Width: 320, Height: 240}},
		nil, vis, sink)

	poses, err := o.Tick(context.Background())
	if err == nil {
		t.Fatal("expected error for missing model runner")
	}
	if poses != nil {
		t.Error("skipped tick must not produce poses")
	}
	if vis.renders != 0 {
		t.Error("skipped tick must not call the visualizer")
	}
	if len(sink.counts) != 0 {
		t.Error("skipped tick must not update the pose count")
	}
}

func TestTickRunsFullCycle(t *testing.T) {
	src := &fakeSource{dims: pose.Dims{Width: 640, Height: 480}}
	proc := &fakeProcessor{inputDims: pose.Dims{Width: 320, Height: 240}}
	runner := &fakeRunner{
		poses: []pose.Pose{
			{Keypoints: []pose.Keypoint{
				{Part: pose.Nose, Position: pose.Point{X: 160, Y: 120}, Confidence: 0.9},
			}, Score: 0.9},
		},
	}
	vis := &fakeVisualizer{}
	sink := &fakeSink{}

	o := New(testConfig(), src, proc, runner, vis, sink)

	poses, err := o.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	if runner.runs != 1 || runner.decodes != 1 {
		t.Errorf("runner calls: runs=%d decodes=%d, want 1/1", runner.runs, runner.decodes)
	}
	if runner.constrained != proc.inputDims {
		t.Errorf("runner constraint received %v, want processor dims %v", runner.constrained, proc.inputDims)
	}
	if runner.releasedAtRun {
		t.Error("tensor must still be live while the runner executes")
	}
	if runner.tensorAtRun.Data != nil {
		t.Error("tensor must be released after model execution")
	}

	// Versatz: (640-320)/2, (480-240)/2
	wantOffset := pose.Offset{X: 160, Y: 120}
	if proc.lastOffset != wantOffset {
		t.Errorf("crop offset %v, want %v", proc.lastOffset, wantOffset)
	}

	// Keypoint (160,120) + Versatz (160,120), skaliert 1280/320 und 720/240
	got := poses[0].Keypoints[0].Position
	if math.Abs(got.X-1280) > 1e-9 || math.Abs(got.Y-720) > 1e-9 {
		t.Errorf("rescaled keypoint (%v, %v), want (1280, 720)", got.X, got.Y)
	}

	if len(sink.counts) != 1 || sink.counts[0] != 1 {
		t.Errorf("sink counts %v, want [1]", sink.counts)
	}
	if vis.renders != 1 {
		t.Errorf("visualizer renders %d, want 1", vis.renders)
	}
	if vis.lastThreshold != 0.7 {
		t.Errorf("visualizer threshold %v, want 0.7", vis.lastThreshold)
	}
}

func TestMutatorsApplyNextTick(t *testing.T) {
	src := &fakeSource{dims: pose.Dims{Width: 640, Height: 480}}
	proc := &fakeProcessor{inputDims: pose.Dims{Width: 320, Height: 240}}
	runner := &fakeRunner{}
	o := New(testConfig(), src, proc, runner, &fakeVisualizer{}, &fakeSink{})

	if _, err := o.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if !runner.lastParams.MultiPose {
		t.Fatal("initial decode mode should be multi-pose")
	}

	o.SetMultiPose(false)
	o.SetConfidenceThreshold(1.5) // außerhalb [0,1], wird bewusst nicht validiert

	vis := &fakeVisualizer{}
	o.visualizer = vis
	if _, err := o.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if runner.lastParams.MultiPose {
		t.Error("multi-pose toggle must apply on the next tick")
	}
	if vis.lastThreshold != 1.5 {
		t.Errorf("out-of-range threshold must pass through, got %v", vis.lastThreshold)
	}
}

func TestPoseCountPushedPerFrame(t *testing.T) {
	src := &fakeSource{dims: pose.Dims{Width: 320, Height: 240}}
	proc := &fakeProcessor{inputDims: pose.Dims{Width: 160, Height: 120}}
	runner := &fakeRunner{}
	sink := &fakeSink{}
	o := New(testConfig(), src, proc, runner, &fakeVisualizer{}, sink)

	for i := 0; i < 3; i++ {
		if _, err := o.Tick(context.Background()); err != nil {
			t.Fatalf("Tick %d failed: %v", i, err)
		}
	}
	if len(sink.counts) != 3 {
		t.Errorf("sink received %d updates, want 3", len(sink.counts))
	}
}
