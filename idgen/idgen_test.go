package idgen

import (
	"errors"
	"testing"

	"github.com/wyfcoding/ivcalc/config"
)

func TestSnowflakeGenerator_Unique(t *testing.T) {
	g, err := NewSnowflakeGenerator(config.SnowflakeConfig{MachineID: 7})
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[int64]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := g.Generate()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewGenerator_Types(t *testing.T) {
	if _, err := NewGenerator(config.SnowflakeConfig{Type: "sonyflake", MachineID: 2}); err != nil {
		t.Fatalf("sonyflake: %v", err)
	}
	if _, err := NewGenerator(config.SnowflakeConfig{Type: "uuid"}); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if _, err := NewGenerator(config.SnowflakeConfig{Type: "sonyflake", MachineID: 70000}); !errors.Is(err, ErrInvalidMachineID) {
		t.Fatalf("expected ErrInvalidMachineID, got %v", err)
	}
	if _, err := NewGenerator(config.SnowflakeConfig{StartTime: "not-a-date"}); !errors.Is(err, ErrParseTime) {
		t.Fatalf("expected ErrParseTime, got %v", err)
	}
}

func TestGenIDString(t *testing.T) {
	a, b := GenIDString(), GenIDString()
	if a == "" || a == b {
		t.Fatalf("expected distinct non-empty ids, got %q %q", a, b)
	}
}
