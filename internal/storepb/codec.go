package storepb

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/creditkeeper/internal/client/models"
	"google.golang.org/protobuf/types/known/structpb"
)

// EventToStruct encodes a purchase event for the wire.
func EventToStruct(e models.PurchaseEvent) (*structpb.Struct, error) {
	m := map[string]any{
		"transaction_id":          e.TransactionID,
		"original_transaction_id": e.OriginalTransactionID,
		"product_id":              e.ProductID,
		"receipt":                 e.Receipt,
		"signed_transaction":      e.SignedTransaction,
		"acknowledged":            e.Acknowledged,
		"platform":                e.Platform,
		"environment":             e.Environment,
	}
	if !e.PurchasedAt.IsZero() {
		m["purchased_at_ms"] = float64(e.PurchasedAt.UnixMilli())
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode purchase event: %w", err)
	}
	return s, nil
}

// EventFromStruct decodes a purchase event. Missing fields stay zero.
func EventFromStruct(s *structpb.Struct) models.PurchaseEvent {
	f := s.GetFields()
	e := models.PurchaseEvent{
		TransactionID:         f["transaction_id"].GetStringValue(),
		OriginalTransactionID: f["original_transaction_id"].GetStringValue(),
		ProductID:             f["product_id"].GetStringValue(),
		Receipt:               f["receipt"].GetStringValue(),
		SignedTransaction:     f["signed_transaction"].GetStringValue(),
		Acknowledged:          f["acknowledged"].GetBoolValue(),
		Platform:              f["platform"].GetStringValue(),
		Environment:           f["environment"].GetStringValue(),
	}
	if ms, ok := f["purchased_at_ms"]; ok {
		e.PurchasedAt = time.UnixMilli(int64(ms.GetNumberValue())).UTC()
	}
	return e
}

// EventsToStruct wraps a list of events as {"events": [...]}.
func EventsToStruct(events []models.PurchaseEvent) (*structpb.Struct, error) {
	list := make([]*structpb.Value, 0, len(events))
	for _, e := range events {
		s, err := EventToStruct(e)
		if err != nil {
			return nil, err
		}
		list = append(list, structpb.NewStructValue(s))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"events": structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}, nil
}

func EventsFromStruct(s *structpb.Struct) []models.PurchaseEvent {
	values := s.GetFields()["events"].GetListValue().GetValues()
	out := make([]models.PurchaseEvent, 0, len(values))
	for _, v := range values {
		out = append(out, EventFromStruct(v.GetStructValue()))
	}
	return out
}

// ProductIDsToStruct encodes a product query as {"ids": [...]}.
func ProductIDsToStruct(ids []string) *structpb.Struct {
	list := make([]*structpb.Value, len(ids))
	for i, id := range ids {
		list[i] = structpb.NewStringValue(id)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"ids": structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}
}

func ProductIDsFromStruct(s *structpb.Struct) []string {
	values := s.GetFields()["ids"].GetListValue().GetValues()
	ids := make([]string, 0, len(values))
	for _, v := range values {
		ids = append(ids, v.GetStringValue())
	}
	return ids
}

func ProductsToStruct(products []models.Product) (*structpb.Struct, error) {
	list := make([]any, 0, len(products))
	for _, p := range products {
		list = append(list, map[string]any{
			"id":       p.ID,
			"title":    p.Title,
			"credits":  float64(p.Credits),
			"price":    p.Price,
			"currency": p.Currency,
		})
	}
	s, err := structpb.NewStruct(map[string]any{"products": list})
	if err != nil {
		return nil, fmt.Errorf("failed to encode products: %w", err)
	}
	return s, nil
}

func ProductsFromStruct(s *structpb.Struct) []models.Product {
	values := s.GetFields()["products"].GetListValue().GetValues()
	out := make([]models.Product, 0, len(values))
	for _, v := range values {
		f := v.GetStructValue().GetFields()
		out = append(out, models.Product{
			ID:       f["id"].GetStringValue(),
			Title:    f["title"].GetStringValue(),
			Credits:  int64(f["credits"].GetNumberValue()),
			Price:    f["price"].GetStringValue(),
			Currency: f["currency"].GetStringValue(),
		})
	}
	return out
}

// FinishRequest encodes a FinishTransaction call.
func FinishRequest(transactionID string, consume bool) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"transaction_id": structpb.NewStringValue(transactionID),
		"consume":        structpb.NewBoolValue(consume),
	}}
}

func ParseFinishRequest(s *structpb.Struct) (string, bool) {
	f := s.GetFields()
	return f["transaction_id"].GetStringValue(), f["consume"].GetBoolValue()
}
