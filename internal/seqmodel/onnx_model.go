//go:build onnx
// +build onnx

package seqmodel

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// onnxModel runs an exported network that takes a float32 one-hot tensor of
// shape (1, len, vocab) and returns (1, vocab) probabilities.
type onnxModel struct {
	path       string
	vocabSize  int
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
}

func newONNXModel(path string, vocabSize int) (Model, error) {
	if path == "" {
		return nil, fmt.Errorf("onnx model path is required")
	}
	if vocabSize <= 0 {
		return nil, fmt.Errorf("onnx model needs the vocabulary size")
	}
	return &onnxModel{path: path, vocabSize: vocabSize}, nil
}

func (m *onnxModel) VocabSize() int { return m.vocabSize }

func (m *onnxModel) ensureSession() error {
	if m.session != nil {
		return nil
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("initialize onnx runtime: %w", err)
		}
	}
	ins, outs, err := ort.GetInputOutputInfo(m.path)
	if err != nil {
		return fmt.Errorf("get IO info: %w", err)
	}
	for _, ii := range ins {
		if ii.DataType == ort.TensorElementDataTypeFloat {
			m.inputName = ii.Name
			break
		}
	}
	for _, oi := range outs {
		if oi.DataType == ort.TensorElementDataTypeFloat {
			m.outputName = oi.Name
			break
		}
	}
	if m.inputName == "" || m.outputName == "" {
		return fmt.Errorf("could not determine float input/output of %s", m.path)
	}
	s, err := ort.NewDynamicAdvancedSession(m.path, []string{m.inputName}, []string{m.outputName}, nil)
	if err != nil {
		return fmt.Errorf("create onnx session: %w", err)
	}
	m.session = s
	return nil
}

func (m *onnxModel) Predict(ctx context.Context, window [][]float32) ([]float64, error) {
	if err := checkWindow(window, m.vocabSize); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.ensureSession(); err != nil {
		return nil, err
	}

	flat := make([]float32, 0, len(window)*m.vocabSize)
	for _, row := range window {
		flat = append(flat, row...)
	}
	in, err := ort.NewTensor(ort.NewShape(1, int64(len(window)), int64(m.vocabSize)), flat)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer in.Destroy()

	outs := make([]ort.Value, 1)
	if err := m.session.Run([]ort.Value{in}, outs); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	defer func() {
		if outs[0] != nil {
			outs[0].Destroy()
		}
	}()

	t, ok := outs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type")
	}
	data := t.GetData()
	if len(data) != m.vocabSize {
		return nil, fmt.Errorf("output has %d values, want %d", len(data), m.vocabSize)
	}
	probs := make([]float64, len(data))
	for i, p := range data {
		probs[i] = float64(p)
	}
	return probs, nil
}
