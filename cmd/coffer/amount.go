// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// Amount units by number of decimals, checked longest suffix first
var amountUnits = []struct {
	suffix   string
	decimals int
}{
	{"gwei", 9},
	{"wei", 0},
	{"eth", 18},
}

var errAmountOverflow = errors.New("amount overflows uint64")

// parseAmount parses an amount of the smallest unit, optionally written as a
// decimal with a unit suffix, such as "1eth", "0.5eth" or "250gwei"
func parseAmount(s string) (uint64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	decimals := 0
	for _, unit := range amountUnits {
		if strings.HasSuffix(s, unit.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, unit.suffix))
			decimals = unit.decimals
			break
		}
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && (!hasFrac || frac == "") {
		return 0, fmt.Errorf("invalid amount: %q", s)
	}
	if len(frac) > decimals {
		return 0, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	digits := whole + frac + strings.Repeat("0", decimals-len(frac))
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid amount: %q", s)
		}
	}
	val, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, errAmountOverflow
		}
		return 0, fmt.Errorf("invalid amount: %q", s)
	}
	return val, nil
}

// formatEth renders an amount in eth with trailing zeros removed
func formatEth(amount uint64) string {
	const unit = 1_000_000_000_000_000_000
	hi, lo := bits.Div64(0, amount, unit)
	if lo == 0 {
		return strconv.FormatUint(hi, 10) + "eth"
	}
	frac := strings.TrimRight(fmt.Sprintf("%018d", lo), "0")
	return strconv.FormatUint(hi, 10) + "." + frac + "eth"
}
