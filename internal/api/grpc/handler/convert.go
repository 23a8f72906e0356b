package handler

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/chatdata-server/internal/model"
)

// toStruct converts a JSON-serializable value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}

	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("failed to build response struct: %w", err)
	}
	return out, nil
}

// fromStruct decodes a protobuf Struct into dst using its JSON tags.
func fromStruct(in *structpb.Struct, dst any) error {
	data, err := protojson.Marshal(in)
	if err != nil {
		return model.NewValidationError("Invalid request body", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return model.NewValidationError("Invalid request body", err)
	}
	return nil
}
