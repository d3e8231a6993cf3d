//go:build !onnx
// +build !onnx

package seqmodel

import "fmt"

func newONNXModel(path string, vocabSize int) (Model, error) {
	return nil, fmt.Errorf("onnx model not available: build with -tags onnx")
}
