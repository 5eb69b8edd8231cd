package proto

import (
	"encoding/json"
	"fmt"

	"merlo/server/internal/sim"
)

// DecodePatchPayload recovers the typed payload of a decoded patch. Payloads
// arrive as generic JSON after unmarshalling a state delta, so they are
// round-tripped into the concrete type the kind names.
func DecodePatchPayload(patch sim.Patch) (any, error) {
	if patch.Payload == nil {
		if patch.Kind == sim.PatchPlayerRemoved {
			return nil, nil
		}
		return nil, fmt.Errorf("patch %s for %q has no payload", patch.Kind, patch.EntityID)
	}
	raw, err := json.Marshal(patch.Payload)
	if err != nil {
		return nil, fmt.Errorf("re-encode patch payload: %w", err)
	}
	switch patch.Kind {
	case sim.PatchMovementState:
		var payload sim.MovementStatePayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	case sim.PatchTransform:
		var payload sim.TransformPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	case sim.PatchVelocity:
		var payload sim.VelocityPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	case sim.PatchPlayerJoined:
		var payload sim.PlayerJoinedPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	case sim.PatchPlayerRemoved:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown patch kind %q", patch.Kind)
	}
}
