package control

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/cybre/backdrop-sync/internal/bus"
	"github.com/cybre/backdrop-sync/internal/stage"
	"github.com/cybre/backdrop-sync/internal/utils"
)

var (
	ErrUnknownKind = eris.New("unknown control event")
	ErrNotNumeric  = eris.New("payload is not numeric")
)

// Limits bound the index-valued events.
type Limits struct {
	OverlayCount int
	StepCount    int
}

type rawMessage = json.RawMessage

// Decode turns an envelope into an Event, clamping numeric payloads. The
// returned error means the event should be ignored.
func Decode(env bus.Envelope, limits Limits) (Event, error) {
	switch Kind(env.Kind) {
	case KindProgress:
		v, err := number(env.Payload)
		if err != nil {
			return nil, eris.Wrap(err, string(KindProgress))
		}
		return Progress{Value: utils.Clamp01(v)}, nil
	case KindNext:
		return Next{}, nil
	case KindPrev:
		return Prev{}, nil
	case KindSetStep:
		v, err := number(env.Payload)
		if err != nil {
			return nil, eris.Wrap(err, string(KindSetStep))
		}
		return SetStep{Step: floorIndex(v, limits.StepCount)}, nil
	case KindOverlayIndex:
		v, err := number(env.Payload)
		if err != nil {
			return nil, eris.Wrap(err, string(KindOverlayIndex))
		}
		return OverlayIndex{Index: floorIndex(v, limits.OverlayCount)}, nil
	case KindOverlayOpacity:
		v, err := number(env.Payload)
		if err != nil {
			return nil, eris.Wrap(err, string(KindOverlayOpacity))
		}
		return OverlayOpacity{Opacity: utils.Clamp01(v)}, nil
	case KindHealingText:
		return HealingText{Text: text(env.Payload)}, nil
	case KindRandomize:
		return Randomize{}, nil
	case KindSelect:
		return Select{}, nil
	case KindLandingProceed:
		return LandingProceed{Raw: []byte(env.Payload)}, nil
	case KindFinal:
		return Final{}, nil
	case KindStage1:
		return EnterStage{Stage: stage.Base}, nil
	case KindStage2:
		return EnterStage{Stage: stage.Stage2}, nil
	case KindStage3:
		return EnterStage{Stage: stage.Stage3}, nil
	case KindPhase:
		v, err := number(env.Payload)
		if err != nil {
			return nil, eris.Wrap(err, string(KindPhase))
		}
		return Phase{Delta: v}, nil
	case KindFlash:
		return Flash{}, nil
	default:
		return nil, eris.Wrapf(ErrUnknownKind, "%q", env.Kind)
	}
}

// number accepts a JSON number, a numeric string or {"value": x}.
func number(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, ErrNotNumeric
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, eris.Wrapf(ErrNotNumeric, "%v", err)
	}

	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, eris.Wrapf(ErrNotNumeric, "%q", x)
		}
		f = parsed
	case map[string]any:
		inner, ok := x["value"]
		if !ok {
			return 0, ErrNotNumeric
		}
		b, err := json.Marshal(inner)
		if err != nil {
			return 0, eris.Wrapf(ErrNotNumeric, "%v", err)
		}
		return number(b)
	default:
		return 0, ErrNotNumeric
	}

	if !utils.Finite(f) {
		return 0, eris.Wrapf(ErrNotNumeric, "%v", f)
	}
	return f, nil
}

// floorIndex floors v and clamps it into [0, n-1].
func floorIndex(v float64, n int) int {
	if n <= 0 || v <= 0 {
		return 0
	}
	if v >= float64(n) {
		return n - 1
	}
	return utils.ClampIndex(int(math.Floor(v)), n)
}

// text passes strings through, maps null to empty and any other JSON to
// its literal text.
func text(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return ""
	}
	return trimmed
}
