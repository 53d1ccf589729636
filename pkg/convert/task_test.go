package convert

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"heic-toolkit-go/pkg/codec"
	"heic-toolkit-go/pkg/stats"
)

var bothTargets = []codec.Target{codec.TargetJPEG, codec.TargetWebP}

func discoverOne(t *testing.T, root string) SourceFile {
	t.Helper()
	files, err := Discover(root, []string{".heic"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	return files[0]
}

func TestTaskFailureIsolation(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "x.heic")
	src := discoverOne(t, root)

	m := &mockCodec{}
	m.On("Convert", mock.Anything, src.Path, src.Destination(codec.TargetJPEG), codec.TargetJPEG, 80).Return(nil)
	m.On("Convert", mock.Anything, src.Path, src.Destination(codec.TargetWebP), codec.TargetWebP, 80).
		Return(&codec.ConversionError{Backend: "mock", Target: codec.TargetWebP, Source: src.Path, Err: errors.New("encoder crashed")})

	task := &Task{Codec: m, Specs: TargetSpecs(bothTargets, 80), Prefix: "p/", Logger: zap.NewNop()}
	res := task.Run(context.Background(), src)

	assert.Equal(t, FailureStatus(codec.TargetWebP), res.Outcome.Status)
	assert.Equal(t, Status("webp_failed"), res.Outcome.Status)
	assert.Equal(t, "p/x.jpg", res.Outcome.Path(codec.TargetJPEG))
	assert.Empty(t, res.Outcome.Path(codec.TargetWebP))
	assert.Equal(t, "x.heic", res.Outcome.OriginalFilename)
	assert.Equal(t, "p/x.heic", res.Outcome.OriginalPath)
	assert.Equal(t, 1, res.ConvertedDelta)
	assert.Equal(t, 1, res.ErroredDelta)
	m.AssertExpectations(t)
}

func TestTaskFirstFailureWins(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "x.heic")
	src := discoverOne(t, root)

	m := &mockCodec{}
	m.On("Convert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("no decoder"))

	task := &Task{Codec: m, Specs: TargetSpecs(bothTargets, 80)}
	res := task.Run(context.Background(), src)

	assert.Equal(t, Status("jpeg_failed"), res.Outcome.Status)
	assert.Empty(t, res.Outcome.Paths)
	assert.Equal(t, 0, res.ConvertedDelta)
	assert.Equal(t, 2, res.ErroredDelta)
	m.AssertNumberOfCalls(t, "Convert", 2)
}

func TestTaskSkipsWhenAllTargetsExist(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "x.heic", "x.jpg", "x.webp")
	src := discoverOne(t, root)

	m := &mockCodec{}
	task := &Task{Codec: m, Specs: TargetSpecs([]codec.Target{codec.TargetJPEG}, 80), Prefix: "p/"}
	res := task.Run(context.Background(), src)

	assert.Equal(t, StatusSkipped, res.Outcome.Status)
	// Skipped rows list existing outputs even for targets not enabled
	assert.Equal(t, "p/x.jpg", res.Outcome.Path(codec.TargetJPEG))
	assert.Equal(t, "p/x.webp", res.Outcome.Path(codec.TargetWebP))
	assert.Equal(t, 0, res.ConvertedDelta)
	assert.Equal(t, 0, res.ErroredDelta)
	m.AssertNotCalled(t, "Convert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTaskProcessedRowOmitsDisabledTargets(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "x.heic", "x.webp")
	src := discoverOne(t, root)

	task := &Task{Codec: &fakeCodec{}, Specs: TargetSpecs([]codec.Target{codec.TargetJPEG}, 80), Prefix: "p/"}
	res := task.Run(context.Background(), src)

	assert.Equal(t, StatusSuccess, res.Outcome.Status)
	assert.Equal(t, "p/x.jpg", res.Outcome.Path(codec.TargetJPEG))
	assert.Empty(t, res.Outcome.Path(codec.TargetWebP))
}

func TestTaskPartialIdempotence(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "x.heic", "x.jpg")
	src := discoverOne(t, root)

	m := &mockCodec{}
	m.On("Convert", mock.Anything, src.Path, src.Destination(codec.TargetWebP), codec.TargetWebP, 80).Return(nil)

	task := &Task{Codec: m, Specs: TargetSpecs(bothTargets, 80)}
	res := task.Run(context.Background(), src)

	assert.Equal(t, StatusSuccess, res.Outcome.Status)
	assert.Equal(t, "x.jpg", res.Outcome.Path(codec.TargetJPEG))
	assert.Equal(t, "x.webp", res.Outcome.Path(codec.TargetWebP))
	assert.Equal(t, 1, res.ConvertedDelta)
	m.AssertExpectations(t)
}

func TestTaskDestinationRace(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "x.heic")
	src := discoverOne(t, root)

	m := &mockCodec{}
	m.On("Convert", mock.Anything, mock.Anything, mock.Anything, codec.TargetJPEG, 80).
		Return(fmt.Errorf("commit: %w", codec.ErrDestinationExists))

	task := &Task{Codec: m, Specs: TargetSpecs([]codec.Target{codec.TargetJPEG}, 80)}
	res := task.Run(context.Background(), src)

	assert.Equal(t, StatusSkipped, res.Outcome.Status)
	assert.Equal(t, "x.jpg", res.Outcome.Path(codec.TargetJPEG))
	assert.Equal(t, 0, res.ConvertedDelta)
	assert.Equal(t, 0, res.ErroredDelta)
}

func TestTaskRecordsStatistics(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "x.heic")
	src := discoverOne(t, root)

	conversionStats := stats.NewConversionStats()
	task := &Task{Codec: &fakeCodec{}, Specs: TargetSpecs(bothTargets, 80), Stats: conversionStats}
	res := task.Run(context.Background(), src)
	require.Equal(t, StatusSuccess, res.Outcome.Status)

	summaries := conversionStats.Summaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, "jpeg", summaries[0].Target)
	assert.Equal(t, int64(1), summaries[0].Files)
	assert.Equal(t, src.Size, summaries[0].SourceBytes)
	assert.Equal(t, int64(len("converted-jpeg")), summaries[0].OutputBytes)
}

func TestTargetSpecs(t *testing.T) {
	specs := TargetSpecs([]codec.Target{codec.TargetWebP}, 55)
	require.Len(t, specs, 2)
	assert.Equal(t, TargetSpec{Target: codec.TargetJPEG, Quality: 55, Enabled: false}, specs[0])
	assert.Equal(t, TargetSpec{Target: codec.TargetWebP, Quality: 55, Enabled: true}, specs[1])
}
