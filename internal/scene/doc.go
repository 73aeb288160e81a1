// Package scene parses scene descriptions into immutable [Scene] values.
//
// The accepted format is the subset of MJCF (MuJoCo XML) needed to describe
// articulated rigid bodies resting on a ground plane:
//
//	<mujoco>
//	  <option gravity="0 0 -9.81" timestep="0.002"/>
//	  <worldbody>
//	    <geom type="plane" size="20 20 0.5"/>
//	    <body name="ball" pos="0 0 5">
//	      <freejoint/>
//	      <geom type="sphere" size="0.5" mass="1.0"/>
//	    </body>
//	  </worldbody>
//	</mujoco>
//
// Bodies are re-expressed about their centre of mass at parse time, so every
// position stored in a [Scene] (geom centres, joint anchors) is relative to a
// body's COM. Rest orientations are always the identity.
//
// A [Scene] is read-only after [Parse] returns: accessors hand out copies and
// the same input bytes always produce a structurally identical value.
package scene
