// Package mechanism instantiates a geometry spec as rigid bodies and
// constraints in a physics world.
//
// # Placement
//
// Every joint anchor in a spec is local to the reference anchor (the rear
// upper hip pivot); [Build] moves it to base+anchor. Each link collects the
// distinct world anchors of the joints touching it into an [AnchorSet].
// Motorised cranks are placed at their pivot, rotated to the motor's zero
// angle. Passive rods run from the earlier of their two farthest-apart
// anchors through the other. Any further anchor must lie on the body, so
// every pin is reachable from both bodies it joins.
//
// # Constraints
//
// Bodies are all created before any constraint. Every joint becomes a stiff
// pivot; revolute joints also get a rotary limit, and an enabled motor.
// Motors named in [Options.Driven] are registered with the servo
// controller, which records their home angle at that moment.
//
//	scene := physics.NewScene()
//	ctrl := servo.New(servo.DefaultConfig(), logger)
//	m, err := mechanism.Build(ctx, spec, mechanism.DefaultBase, scene, mechanism.Options{
//	    Driven: mechanism.DrivenUpperMotors("rear", "front"),
//	    Servo:  ctrl,
//	})
package mechanism
