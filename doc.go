/*
Package gaze estimates where a user is looking from webcam frames.

For every frame it isolates both eyes using the 68 facial landmark points of
the face, locates the pupil inside each eye region, derives normalized
horizontal and vertical gaze ratios, classifies the look direction and the
blink state, and times how long the gaze stays inside a target cell of a 3x3
screen grid.

The binarization threshold separating the iris from the rest of the eye is
calibrated per user during the first frames of a session, which is why the
frames of a stream have to go through the same Session:

	package main

	import (
		"fmt"
		"github.com/esimov/gaze"
	)

	func main() {
		s, err := gaze.NewSession(gaze.DefaultConfig())
		if err != nil {
			panic(err)
		}
		for frame := range frames {
			res := s.Process(frame.Image, frame.Landmarks)
			if res.PupilsLocated && res.IsLeft {
				fmt.Println("looking left")
			}
		}
	}

The landmarks are provided by an external detector; the landmark package
contains one built on the pigo cascades.
*/
package gaze
