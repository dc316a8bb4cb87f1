// Package io provides JSON import and export for geometry specs and pose
// dumps.
//
// # Overview
//
// A geometry spec is the hand-off between the pose editor and the mechanism
// builder. The format is a single JSON object:
//
//	{
//	  "link_defaults": {"mass": 0.5},
//	  "torso": {"size": {"width": 0.3048, "height": 0.0577},
//	            "mass": 2.27, "inertia_zz": 0.033, "friction": 1.0},
//	  "fixed_offsets": {"top_offset": 0.0319, "bottom_offset": 0.0258,
//	                    "front_offset": 0.0425, "hip_spacing": 0.18},
//	  "links": {"rear_red": {"length": 0.031}},
//	  "joints": [
//	    {"name": "rear_upper_motor", "parent": "torso", "child": "rear_crank_upper",
//	     "type": "revolute", "anchor": [0, 0], "limits": [-3.14159, 3.14159],
//	     "motor": {"enabled": true, "max_force": 2.5}, "zero_angle": 2.35619}
//	  ],
//	  "ground": {"segment": [[-2, -0.03], [6, -0.03]], "thickness": 0.02, "friction": 1.2}
//	}
//
// Joint anchors are local coordinates relative to the reference leg's upper
// pivot. The ground segment is in world coordinates.
//
// # Import
//
// Use [ImportJSON] to read a spec from a file path, or [ReadJSON] to read
// from any io.Reader. Unknown fields are rejected and the decoded spec is
// validated, so a successful import is always buildable in principle.
//
// # Export
//
// [WriteJSON] and [ExportJSON] write a spec; [WritePoses] and [ExportPoses]
// write the companion pose dump, {"<leg>": {"<joint>": [x, y]}}.
//
// # Concurrency
//
// All functions are safe to call concurrently. Decoded specs are independent
// values.
package io
