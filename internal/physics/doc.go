// Package physics steps scenes built by package scene.
//
// Bodies are simulated in maximal coordinates: every body carries a world
// position, a unit quaternion and linear/angular velocities, and joints are
// enforced as position-level constraints after each integration substep.
// The layout of a [State] is
//
//	Q  = [x y z qw qx qy qz] per body
//	QD = [vx vy vz wx wy wz] per body (world frame)
//
// A substep runs the configured [dynamo.Integrator] on the unconstrained
// rigid-body equations, projects joint and ground constraints, and then
// corrects velocities for contact restitution, Coulomb friction and joint
// damping. Velocities are the integrated ones plus the solver's positional
// corrections divided by the substep, so free motion is never biased by the
// projection.
//
//	sc, _ := scene.Load("ball")
//	p, _ := physics.New(sc)
//	s, _ := p.Init(nil, []float64{5, 0, 0, 0, 10, 0})
//	for i := 0; i < 1000; i++ {
//	    s, err = p.Step(s, nil)
//	}
//
// A Pipeline is not safe for concurrent use; give each goroutine its own.
package physics
