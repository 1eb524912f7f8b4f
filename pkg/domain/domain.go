// pkg/domain/domain.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package domain holds the per-domain post-processors (Maritime,
// Aviation, Ground, Personnel) that the tick orchestrator runs after
// writing each entity's noised, terrain-corrected state to the store.
// Each processor reads the domain's entities back out, mutates
// domain-specific metadata and kinematics, and writes the result back
// via the store's Update.
package domain

// metersPerDegreeLat mirrors pkg/noise's constant; kept local so this
// package doesn't need to import pkg/noise for one conversion factor.
const metersPerDegreeLat = 111111.0

const knotsToKMH = 1.852
