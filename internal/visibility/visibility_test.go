package visibility

import (
	"testing"

	"github.com/hllmltyl/geri-donusum/internal/point"
)

// The visibility rule over the whole role x verified x author space: a point
// is visible iff the viewer is an admin, the point is verified, or the viewer
// authored it.
func TestVisibilityRule(t *testing.T) {
	viewers := []ViewerContext{
		Anonymous,
		{Identity: "u1", Role: RoleUser},
		{Identity: "u2", Role: RoleUser},
		{Identity: "a1", Role: RoleAdmin},
	}
	authors := []string{point.SystemAuthor, "u1", "u2"}

	for _, viewer := range viewers {
		for _, author := range authors {
			for _, verified := range []bool{false, true} {
				p := point.RecyclingPoint{ID: "p", CreatedBy: author, Verified: verified}
				want := viewer.Role == RoleAdmin || verified ||
					(viewer.SignedIn() && author == viewer.Identity)
				if got := CanSee(p, viewer); got != want {
					t.Fatalf("viewer=%+v author=%s verified=%v: got %v want %v",
						viewer, author, verified, got, want)
				}
			}
		}
	}
}

func TestVisibleFilters(t *testing.T) {
	points := []point.RecyclingPoint{
		{ID: "verified", Verified: true, CreatedBy: point.SystemAuthor},
		{ID: "own-pending", Verified: false, CreatedBy: "u1"},
		{ID: "other-pending", Verified: false, CreatedBy: "u2"},
	}

	anon := Visible(points, Anonymous)
	if len(anon) != 1 || anon[0].ID != "verified" {
		t.Fatalf("anonymous should see only verified, got %+v", anon)
	}

	u1 := Visible(points, ViewerContext{Identity: "u1", Role: RoleUser})
	if len(u1) != 2 || u1[0].ID != "verified" || u1[1].ID != "own-pending" {
		t.Fatalf("u1 should see verified and own pending, got %+v", u1)
	}

	admin := Visible(points, ViewerContext{Identity: "a1", Role: RoleAdmin})
	if len(admin) != 3 {
		t.Fatalf("admin should see everything, got %+v", admin)
	}

	if len(points) != 3 {
		t.Fatalf("input slice mutated")
	}
}

func TestAnonymousNeverMatchesEmptyAuthor(t *testing.T) {
	// A pending point with an empty author must not leak to the anonymous
	// viewer, whose identity is also empty.
	p := point.RecyclingPoint{ID: "p", Verified: false, CreatedBy: ""}
	if CanSee(p, Anonymous) {
		t.Fatalf("anonymous viewer must not see pending points")
	}
}

func TestViewerContextHelpers(t *testing.T) {
	if Anonymous.SignedIn() {
		t.Fatalf("anonymous is not signed in")
	}
	if (ViewerContext{Identity: "u1", Role: RoleUser}).Admin() {
		t.Fatalf("user is not admin")
	}
	if !(ViewerContext{Identity: "a1", Role: RoleAdmin}).Admin() {
		t.Fatalf("admin is admin")
	}
	// A role without identity does not count as signed in.
	if (ViewerContext{Role: RoleUser}).SignedIn() {
		t.Fatalf("identity-less context is not signed in")
	}
}
