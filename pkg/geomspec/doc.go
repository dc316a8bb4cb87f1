// Package geomspec defines the declarative mechanism description exchanged
// between the leg solver and the mechanism builder.
//
// # Overview
//
// A [Spec] freezes one solved pose of a legged body: the rigid links with
// their lengths, the joints connecting them (anchored in a local frame whose
// origin is the reference leg's upper pivot), the torso box and the ground.
// Motorised joints record the crank angle at which the pose was committed
// as their zero angle, so that building the spec reproduces the pose.
//
// # Compiling
//
//	body, _ := kinematics.Replicate(kinematics.DefaultGeometry(), kinematics.DefaultHipSpacing)
//	angles := map[string]kinematics.Angles{"rear": {}, "front": {}}
//	spec, err := geomspec.NewCompiler(body, kinematics.DefaultHipSpacing).
//	    Compile(angles, body.Solve(angles))
//
// Compile refuses to freeze a pose in which any leg failed to solve.
//
// # Validation
//
// [Spec.Validate] checks names, values and references and rejects
// parent-to-child cycles in the link graph. Every error carries the
// INVALID_SPEC code.
package geomspec
