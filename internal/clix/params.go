package clix

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// ParseActor resolves the acting address from the --actor flag, falling
// back to the configured default.
func ParseActor(flags *pflag.FlagSet, fallback string) (string, error) {
	actor, _ := flags.GetString("actor")
	if actor == "" {
		actor = fallback
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return "", fmt.Errorf("no actor address given; set --actor or actor.address in config")
	}
	return actor, nil
}

// ParseReward reads --reward as a decimal integer in the ledger's smallest
// unit.
func ParseReward(flags *pflag.FlagSet) (*big.Int, error) {
	raw, _ := flags.GetString("reward")
	reward, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok {
		return nil, fmt.Errorf("invalid reward amount %q", raw)
	}
	return reward, nil
}

// ParseDeadline reads --deadline-in as a duration from now.
func ParseDeadline(flags *pflag.FlagSet) (time.Time, error) {
	in, _ := flags.GetString("deadline-in")
	d, err := time.ParseDuration(in)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid deadline duration %q: %w", in, err)
	}
	return time.Now().Add(d), nil
}
