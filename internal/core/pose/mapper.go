package pose

// MapToScreen rechnet eine Koordinate aus dem Modell-Eingaberaum in
// Bildschirmkoordinaten um. Der Zuschneide-Versatz wird vor der Skalierung
// addiert, anschließend wird pro Achse mit dem Verhältnis Bildschirm zu
// Eingabe skaliert. Bei gespiegelter Anzeige wird die X-Achse an der
// horizontalen Bildschirmmitte reflektiert; die Y-Achse bleibt unberührt.
//
// Die Funktion ist frei von Seiteneffekten und deterministisch; die
// Overlay-Ausrichtung hängt pixelgenau von ihr ab.
func MapToScreen(coord Point, input, screen Dims, offset Offset, mirrored bool) Point {
	scaleX := float64(screen.Width) / float64(input.Width)
	scaleY := float64(screen.Height) / float64(input.Height)

	x := (coord.X + float64(offset.X)) * scaleX
	y := (coord.Y + float64(offset.Y)) * scaleY

	if mirrored {
		x = float64(screen.Width) - x
	}

	return Point{X: x, Y: y}
}

// RescaleInPlace rechnet alle Keypoints der übergebenen Posen einmalig in
// Bildschirmkoordinaten um. Die Posen werden dabei in place verändert.
func RescaleInPlace(poses []Pose, input, screen Dims, offset Offset, mirrored bool) {
	for i := range poses {
		for j := range poses[i].Keypoints {
			kp := &poses[i].Keypoints[j]
			kp.Position = MapToScreen(kp.Position, input, screen, offset, mirrored)
		}
	}
}
