package visibility

import "github.com/hllmltyl/geri-donusum/internal/point"

type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
)

// ViewerContext identifies the viewer of one map session. It is derived from
// the identity provider at session start and never persisted.
type ViewerContext struct {
	Identity string
	Role     Role
}

var Anonymous = ViewerContext{Role: RoleAnonymous}

func (v ViewerContext) SignedIn() bool {
	return v.Identity != "" && v.Role != RoleAnonymous
}

func (v ViewerContext) Admin() bool {
	return v.Role == RoleAdmin
}

// CanSee applies the moderation visibility rule: admins see everything,
// everyone sees verified points, authors see their own pending points.
func CanSee(p point.RecyclingPoint, viewer ViewerContext) bool {
	if viewer.Admin() {
		return true
	}
	if p.Verified {
		return true
	}
	return viewer.SignedIn() && p.CreatedBy == viewer.Identity
}

// Visible filters points down to what the viewer may see. It preserves the
// input order and never mutates the input slice.
func Visible(points []point.RecyclingPoint, viewer ViewerContext) []point.RecyclingPoint {
	visible := make([]point.RecyclingPoint, 0, len(points))
	for _, p := range points {
		if CanSee(p, viewer) {
			visible = append(visible, p)
		}
	}
	return visible
}
