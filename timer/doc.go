// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package timer provides an epoch-guarded timeout scheduler.
//
// A [Set] orders [Entry] values by trigger time in a red-black tree guarded
// by a single mutex. Entries are bound to one Set for life and are
// rescheduled many times; each Entry caches its tree node so repeated
// schedule/cancel cycles do not allocate.
//
// # Epochs
//
// An owner that re-arms the same entry over and over (an act request that
// becomes "current" again and again) stamps every schedule with an epoch
// token and publishes the epoch it currently expects with [Set.Expect].
// Schedule and cancel calls carrying a different epoch are dropped, and an
// entry whose stamp no longer matches the expected epoch is discarded
// instead of fired. Epoch 0 is the wildcard: it always matches.
//
// # Driving
//
// An event loop bounds its wait with [Set.NextDelay] and pops due entries
// with [Set.Poll], or calls [Set.Expire] to pop and run them. [Set.Run] is
// a self-contained sweeper goroutine doing the same.
package timer
