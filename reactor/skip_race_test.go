// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package reactor_test

import "testing"

// skipRace skips tests that share atomix-ordered state across
// goroutines. The race detector cannot see atomix acquire/release
// ordering and reports false positives.
func skipRace(tb testing.TB) {
	tb.Helper()
	tb.Skip("skip: atomix orderings are invisible to the race detector")
}
