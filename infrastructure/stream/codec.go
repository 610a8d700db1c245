// Package stream implements the job event channel over a WebSocket
// connection. Each Conn is an explicitly owned handle bound to one job;
// nothing is shared between handles.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-factorlens/internal/domain"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// envelope is the outer shape of every inbound frame.
type envelope struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data"`
}

// wireFactor mirrors domain.Factor with pointer fields so that a missing
// key can be told apart from a zero value.
type wireFactor struct {
	Rank        *int    `json:"rank" validate:"required,min=1,max=1000000"`
	Name        *string `json:"name" validate:"required"`
	EffectShort *string `json:"effect_short" validate:"required"`
	Direction   string  `json:"direction"`
}

func (w wireFactor) toDomain() domain.Factor {
	return domain.Factor{
		Rank:        *w.Rank,
		Name:        *w.Name,
		EffectShort: *w.EffectShort,
		Direction:   domain.Direction(w.Direction),
	}
}

// DecodeEvent parses one inbound frame into a typed event. Frames whose
// type is neither partial nor final decode to domain.UnknownEvent. Any
// shape violation yields a *domain.EventError wrapping
// domain.ErrMalformedEvent.
func DecodeEvent(payload []byte) (domain.Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, malformed("", fmt.Errorf("decode envelope: %w", err))
	}
	if err := validate.Struct(env); err != nil {
		return nil, malformed("", validationDetail(err))
	}

	switch domain.EventType(env.Type) {
	case domain.EventPartial:
		f, err := decodeFactor(env.Data)
		if err != nil {
			return nil, malformed(domain.EventPartial, err)
		}
		return domain.PartialEvent{Factor: f}, nil

	case domain.EventFinal:
		var wire []wireFactor
		if err := json.Unmarshal(env.Data, &wire); err != nil {
			return nil, malformed(domain.EventFinal, fmt.Errorf("decode factors: %w", err))
		}
		if wire == nil {
			return nil, malformed(domain.EventFinal, errors.New("data must be a list"))
		}
		factors := make([]domain.Factor, 0, len(wire))
		for i, w := range wire {
			if err := validate.Struct(w); err != nil {
				return nil, malformed(domain.EventFinal, fmt.Errorf("factor %d: %w", i, validationDetail(err)))
			}
			factors = append(factors, w.toDomain())
		}
		return domain.FinalEvent{Factors: factors}, nil

	default:
		return domain.UnknownEvent{Kind: env.Type, Raw: env.Data}, nil
	}
}

func decodeFactor(data json.RawMessage) (domain.Factor, error) {
	if len(data) == 0 || string(data) == "null" {
		return domain.Factor{}, errors.New("data is required")
	}
	var w wireFactor
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.Factor{}, fmt.Errorf("decode factor: %w", err)
	}
	if err := validate.Struct(w); err != nil {
		return domain.Factor{}, validationDetail(err)
	}
	return w.toDomain(), nil
}

// EncodeJoin renders the outbound subscription message for jobID.
func EncodeJoin(jobID string) ([]byte, error) {
	return json.Marshal(domain.NewJoinMessage(jobID))
}

func malformed(t domain.EventType, err error) error {
	return domain.NewEventError(t, fmt.Errorf("%w: %w", domain.ErrMalformedEvent, err))
}

// validationDetail flattens validator errors into a single readable error.
func validationDetail(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return errors.New(strings.Join(parts, "; "))
}
