package scene

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/san-kum/trajlab/internal/dynamo"
)

const ballXML = `<mujoco>
  <option gravity="0 0 -9.81"/>
  <worldbody>
    <geom name="ground" type="plane" size="20 20 0.5"/>
    <body name="ball" pos="0 0 5">
      <freejoint/>
      <geom type="sphere" size="0.5" mass="1.0"/>
    </body>
  </worldbody>
</mujoco>`

func TestParseBall(t *testing.T) {
	s, err := Parse([]byte(ballXML))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if s.NumBodies() != 1 {
		t.Fatalf("expected 1 body, got %d", s.NumBodies())
	}
	if !s.HasGround() {
		t.Error("expected ground plane")
	}
	if s.GroundSize() != 20 {
		t.Errorf("ground size = %v, want 20", s.GroundSize())
	}
	if s.Gravity().Z != -9.81 {
		t.Errorf("gravity = %v", s.Gravity())
	}
	if s.ActSize() != 0 {
		t.Errorf("act size = %d, want 0", s.ActSize())
	}
	if s.Timestep() != DefaultTimestep {
		t.Errorf("timestep = %v, want default %v", s.Timestep(), DefaultTimestep)
	}

	b := s.Body(0)
	if !b.Free {
		t.Error("ball should be free")
	}
	if b.Mass != 1.0 {
		t.Errorf("mass = %v, want 1", b.Mass)
	}
	if b.Pos.Z != 5 {
		t.Errorf("rest height = %v, want 5", b.Pos.Z)
	}
	wantI := 0.4 * 1.0 * 0.25
	if math.Abs(b.Inertia[0]-wantI) > 1e-12 || math.Abs(b.Inertia[8]-wantI) > 1e-12 {
		t.Errorf("inertia = %v, want diag %v", b.Inertia, wantI)
	}

	q := s.InitQ()
	want := []float64{0, 0, 5, 1, 0, 0, 0}
	if !reflect.DeepEqual(q, want) {
		t.Errorf("InitQ = %v, want %v", q, want)
	}
	if len(s.InitQD()) != 6 {
		t.Errorf("InitQD length = %d, want 6", len(s.InitQD()))
	}
}

func TestParseIsDeterministic(t *testing.T) {
	for _, name := range Builtin() {
		src, err := Source(name)
		if err != nil {
			t.Fatal(err)
		}
		a, err := Parse(src)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		b, err := Parse(src)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s: two parses differ", name)
		}
	}
}

func TestAccessorsReturnCopies(t *testing.T) {
	s, err := Load("humanoid")
	if err != nil {
		t.Fatal(err)
	}

	bodies := s.Bodies()
	bodies[0].Mass = -1
	bodies[0].Geoms[0].Radius = 99
	if s.Body(0).Mass == -1 || s.Body(0).Geoms[0].Radius == 99 {
		t.Error("Bodies leaks internal state")
	}

	acts := s.Actuators()
	acts[0].Gear = 0
	if s.Actuators()[0].Gear == 0 {
		t.Error("Actuators leaks internal state")
	}
}

func TestBuiltinScenes(t *testing.T) {
	tests := []struct {
		name     string
		bodies   int
		actuated int
	}{
		{"ball", 1, 0},
		{"humanoid", 10, 17},
		{"ant", 9, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Load(tt.name)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if s.NumBodies() != tt.bodies {
				t.Errorf("bodies = %d, want %d", s.NumBodies(), tt.bodies)
			}
			if s.ActSize() != tt.actuated {
				t.Errorf("act size = %d, want %d", s.ActSize(), tt.actuated)
			}
			for _, b := range s.Bodies() {
				if b.Mass <= 0 {
					t.Errorf("body %s has mass %v", b.Name, b.Mass)
				}
				for k := 0; k < 3; k++ {
					if b.Inertia[k*4] <= 0 {
						t.Errorf("body %s has non-positive inertia diagonal %v", b.Name, b.Inertia)
					}
				}
			}
		})
	}
}

func TestParseJointAnchors(t *testing.T) {
	s, err := Load(filepath.Join("testdata", "pendulum.xml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	joints := s.Joints()
	if len(joints) != 1 {
		t.Fatalf("expected 1 joint, got %d", len(joints))
	}
	j := joints[0]
	if j.Parent != -1 || j.Body != 0 {
		t.Errorf("joint links %d -> %d", j.Parent, j.Body)
	}
	if j.ParentAnchor.Z != 3 {
		t.Errorf("world anchor = %v, want z=3", j.ParentAnchor)
	}
	if j.Anchor.Z != 1 {
		t.Errorf("child anchor = %v, want z=1", j.Anchor)
	}
	if !j.Limited || j.Range != [2]float64{-3, 3} {
		t.Errorf("range = %v (limited %v), want radians [-3 3]", j.Range, j.Limited)
	}
	if s.Iterations() != 8 {
		t.Errorf("iterations = %d, want 8", s.Iterations())
	}

	a := s.Actuators()[0]
	if a.Clip(2) != 0.5 || a.Clip(-2) != -0.5 || a.Clip(0.1) != 0.1 {
		t.Error("Clip does not honour ctrlrange")
	}
}

func TestCapsuleFromTo(t *testing.T) {
	s, err := Load("ant")
	if err != nil {
		t.Fatal(err)
	}
	leg := s.Body(s.BodyIndex("front_left_ankle"))
	g := leg.Geoms[0]
	if g.Type != Capsule {
		t.Fatalf("geom type = %s", g.Type)
	}
	wantHalf := 0.5 * math.Sqrt(0.32)
	if math.Abs(g.HalfLength-wantHalf) > 1e-12 {
		t.Errorf("half length = %v, want %v", g.HalfLength, wantHalf)
	}
	if math.Abs(g.Pos.X) > 1e-12 || math.Abs(g.Pos.Y) > 1e-12 {
		t.Errorf("single-geom body should be centred on its COM, got %v", g.Pos)
	}

	pts, radii := g.ContactPoints()
	if len(pts) != 2 || radii[0] != 0.08 {
		t.Errorf("capsule contact points = %v %v", pts, radii)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"not xml", `<mujoco><worldbody>`},
		{"no bodies", `<mujoco><worldbody/></mujoco>`},
		{"bad gravity", `<mujoco><option gravity="0 0"/><worldbody><body><freejoint/><geom size="1"/></body></worldbody></mujoco>`},
		{"unknown geom", `<mujoco><worldbody><body><freejoint/><geom type="mesh" size="1"/></body></worldbody></mujoco>`},
		{"negative radius", `<mujoco><worldbody><body><freejoint/><geom type="sphere" size="-1"/></body></worldbody></mujoco>`},
		{"zero mass", `<mujoco><worldbody><body><freejoint/><geom type="sphere" size="1" mass="0"/></body></worldbody></mujoco>`},
		{"welded body", `<mujoco><worldbody><body><geom type="sphere" size="1"/></body></worldbody></mujoco>`},
		{"nested free", `<mujoco><worldbody><body><freejoint/><geom size="1"/><body><freejoint/><geom size="1"/></body></body></worldbody></mujoco>`},
		{"slide joint", `<mujoco><worldbody><body><joint type="slide"/><geom size="1"/></body></worldbody></mujoco>`},
		{"unknown motor joint", `<mujoco><worldbody><body><freejoint/><geom size="1"/></body></worldbody><actuator><motor joint="nope"/></actuator></mujoco>`},
		{"bad number", `<mujoco><worldbody><body pos="0 0 x"><freejoint/><geom size="1"/></body></worldbody></mujoco>`},
		{"fractional substeps", `<mujoco><custom><numeric name="substeps" data="2.5"/></custom><worldbody><body><freejoint/><geom size="1"/></body></worldbody></mujoco>`},
		{"huge substeps", `<mujoco><custom><numeric name="substeps" data="1e12"/></custom><worldbody><body><freejoint/><geom size="1"/></body></worldbody></mujoco>`},
		{"zero iterations", `<mujoco><custom><numeric name="iterations" data="0"/></custom><worldbody><body><freejoint/><geom size="1"/></body></worldbody></mujoco>`},
		{"huge iterations", `<mujoco><custom><numeric name="iterations" data="5000"/></custom><worldbody><body><freejoint/><geom size="1"/></body></worldbody></mujoco>`},
		{"negative elasticity", `<mujoco><custom><numeric name="elasticity" data="-0.5"/></custom><worldbody><body><freejoint/><geom size="1"/></body></worldbody></mujoco>`},
		{"negative friction", `<mujoco><custom><numeric name="friction" data="-1"/></custom><worldbody><body><freejoint/><geom size="1"/></body></worldbody></mujoco>`},
		{"negative damping", `<mujoco><custom><numeric name="damping" data="-2"/></custom><worldbody><body><freejoint/><geom size="1"/></body></worldbody></mujoco>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.xml))
			if !errors.Is(err, dynamo.ErrParse) {
				t.Errorf("expected ErrParse, got %v", err)
			}
		})
	}
}

func TestParseNumericBounds(t *testing.T) {
	xml := `<mujoco><custom>
		<numeric name="substeps" data="1000"/>
		<numeric name="iterations" data="1"/>
		<numeric name="elasticity" data="0"/>
		<numeric name="friction" data="0"/>
	</custom>` + `<worldbody><body><freejoint/><geom size="1"/></body></worldbody></mujoco>`
	s, err := Parse([]byte(xml))
	if err != nil {
		t.Fatal(err)
	}
	if s.Substeps() != 1000 || s.Iterations() != 1 {
		t.Errorf("substeps = %d, iterations = %d", s.Substeps(), s.Iterations())
	}
}

func TestLoadUnknown(t *testing.T) {
	if _, err := Load("teapot"); !errors.Is(err, dynamo.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
	missing := filepath.Join(t.TempDir(), "missing.xml")
	if _, err := Load(missing); !errors.Is(err, dynamo.ErrConfig) {
		t.Errorf("expected ErrConfig for missing file, got %v", err)
	}
	if _, err := os.Stat(missing); err == nil {
		t.Error("Load should not create files")
	}
}
