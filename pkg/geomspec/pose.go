package geomspec

import (
	"github.com/matzehuels/legsim/pkg/kinematics"
)

// PoseDump holds the solved joint points of each leg in world coordinates,
// encoded as {"<leg>": {"<joint>": [x, y]}}.
type PoseDump map[string]map[string]Vec2

// NewPoseDump collects the poses of successfully solved legs. Failed legs
// are left out.
func NewPoseDump(results map[string]kinematics.LegResult) PoseDump {
	d := make(PoseDump, len(results))
	for leg, r := range results {
		if r.Err != nil || r.Pose.IsZero() {
			continue
		}
		pts := make(map[string]Vec2, r.Pose.Len())
		for _, name := range r.Pose.Names() {
			pt, _ := r.Pose.Point(name)
			pts[name] = FromVec(pt)
		}
		d[leg] = pts
	}
	return d
}
