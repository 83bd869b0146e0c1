package plugin

import (
	"encoding/base64"
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"
)

// initializeToProto converts InitializeRequest to its wire form.
func initializeToProto(req *InitializeRequest) *structpb.Struct {
	options := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(req.Options))}
	for k, v := range req.Options {
		options.Fields[k] = structpb.NewStringValue(v)
	}

	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"name":    structpb.NewStringValue(req.Name),
		"options": structpb.NewStructValue(options),
	}}
}

// protoToInitialize converts the wire form back to InitializeRequest.
// Non-string option values are ignored.
func protoToInitialize(s *structpb.Struct) *InitializeRequest {
	fields := s.GetFields()
	req := &InitializeRequest{
		Name:    fields["name"].GetStringValue(),
		Options: make(map[string]string),
	}

	for k, v := range fields["options"].GetStructValue().GetFields() {
		if _, ok := v.GetKind().(*structpb.Value_StringValue); ok {
			req.Options[k] = v.GetStringValue()
		}
	}

	return req
}

// messageEventToProto converts MessageEvent to its wire form.
// The payload travels base64 encoded since Struct has no bytes kind.
func messageEventToProto(ev *MessageEvent) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"client_id": structpb.NewStringValue(ev.ClientID),
		"topic":     structpb.NewStringValue(ev.Topic),
		"payload":   structpb.NewStringValue(base64.StdEncoding.EncodeToString(ev.Payload)),
		"qos":       structpb.NewNumberValue(float64(ev.QoS)),
		"retain":    structpb.NewBoolValue(ev.Retain),
	}}
}

// protoToMessageEvent converts the wire form back to MessageEvent.
func protoToMessageEvent(s *structpb.Struct) (*MessageEvent, error) {
	fields := s.GetFields()

	payload, err := base64.StdEncoding.DecodeString(fields["payload"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("invalid payload encoding: %w", err)
	}

	qos := fields["qos"].GetNumberValue()
	if qos < 0 || qos > 2 || qos != math.Trunc(qos) {
		return nil, fmt.Errorf("invalid qos %v", qos)
	}

	return &MessageEvent{
		ClientID: fields["client_id"].GetStringValue(),
		Topic:    fields["topic"].GetStringValue(),
		Payload:  payload,
		QoS:      byte(qos),
		Retain:   fields["retain"].GetBoolValue(),
	}, nil
}

func statusToProto(status Status) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"status": structpb.NewNumberValue(float64(status)),
	}}
}

// protoToStatus reads a status reply. A reply without a status is a
// protocol violation and reported as StatusUnknown.
func protoToStatus(s *structpb.Struct) Status {
	v, ok := s.GetFields()["status"]
	if !ok {
		return StatusUnknown
	}
	return Status(int(v.GetNumberValue()))
}

func resultToProto(err error) *structpb.Struct {
	if err != nil {
		return &structpb.Struct{Fields: map[string]*structpb.Value{
			"success": structpb.NewBoolValue(false),
			"error":   structpb.NewStringValue(err.Error()),
		}}
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"success": structpb.NewBoolValue(true),
	}}
}

func protoToResult(s *structpb.Struct) error {
	fields := s.GetFields()
	if fields["success"].GetBoolValue() {
		return nil
	}
	if msg := fields["error"].GetStringValue(); msg != "" {
		return fmt.Errorf("%w: %s", errHookFailed, msg)
	}
	return errHookFailed
}
