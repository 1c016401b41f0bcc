package testutil

import (
	"errors"
	"testing"

	"github.com/MeKo-Tech/modelcheck/internal/onnx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteModel_RoundTrips(t *testing.T) {
	path := WriteModel(t, CreateTempDir(t), "vision/a.onnx", ValidModel())

	m, err := onnx.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "main", m.Graph.Name)
	assert.Len(t, m.Graph.Nodes, 2)
}

func TestWriteTruncatedModel_FailsToLoad(t *testing.T) {
	path := WriteTruncatedModel(t, CreateTempDir(t), "a.onnx")

	_, err := onnx.Load(path)
	require.Error(t, err)
}

func TestWriteLFSPointer_IsRecognised(t *testing.T) {
	path := WriteLFSPointer(t, CreateTempDir(t), "a.onnx")

	_, err := onnx.Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, onnx.ErrLFSPointer))
}

func TestConflictingShapeModel(t *testing.T) {
	m := ConflictingShapeModel()
	assert.Equal(t, "tensor(float)[1,5]", m.Graph.Outputs[0].Type.String())
	assert.Equal(t, "tensor(float)[1,4]", ValidModel().Graph.Outputs[0].Type.String())
}
