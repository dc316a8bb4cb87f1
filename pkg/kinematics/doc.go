// Package kinematics computes joint positions of a planar two-actuator leg
// linkage from its actuator angles.
//
// # Overview
//
// Each leg is a closed chain driven by two crank actuators mounted on the
// torso. Given the two actuator input angles (degrees), the chain is solved
// stage by stage, every stage producing one or more named joint points:
//
//  1. Project both actuator tips from their pivots ([Actuator.Tip]).
//  2. Intersect a circle around the upper tip with a circle around the fixed
//     pivot to find the rocker joint ([Joint1]).
//  3. Extrapolate along the rocker through [Joint1] to its far end
//     ([BlueOrange]).
//  4. Intersect two equal circles around [BlueOrange] and the lower tip to
//     place the foot ([Foot]).
//  5. Interpolate along the coupler to the green attachment point
//     ([GreenAttach]).
//
// Stages 4 and 5 are optional: a [LegGeometry] with no coupler or no attach
// distance yields the shorter chain.
//
// # Branch Selection
//
// Every circle intersection has two candidates. The rocker joint always takes
// the "minus" candidate ([MinusBranch]) and the foot always takes the lower one
// ([LowerBranch]). These rules are fixed and only verified to follow the
// physical assembly mode for the configured actuator range (0-40 degrees).
//
// # Failures
//
// A solve either returns a complete [Pose] or an error carrying one of the
// codes UNREACHABLE, DEGENERATE or ATTACH_OUT_OF_RANGE from
// [github.com/matzehuels/legsim/pkg/errors]. No partial pose is ever returned
// and no NaN ever leaks into a pose.
//
// # Legs
//
// [Replicate] derives a multi-leg [Body] from one reference leg by
// translating it along the hip axis. Legs are solved independently: a failure
// in one never affects another.
//
// # Concurrency
//
// All types are immutable after construction and safe for concurrent use.
// A [Pose] is owned by the caller of the solve that produced it.
package kinematics
