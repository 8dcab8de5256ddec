package pose

// PartID identifiziert einen der 17 COCO-Keypoints
type PartID int

// Keypoint-IDs nach COCO-Konvention
const (
	Nose PartID = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle

	// NumParts ist die Anzahl der Keypoints pro Pose
	NumParts = 17
)

// partNames enthält die Klartextnamen der Keypoints in COCO-Reihenfolge
var partNames = [NumParts]string{
	"nose", "left_eye", "right_eye", "left_ear", "right_ear",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_hip", "right_hip",
	"left_knee", "right_knee", "left_ankle", "right_ankle",
}

// String gibt den COCO-Namen des Keypoints zurück
func (p PartID) String() string {
	if p < 0 || int(p) >= NumParts {
		return "unknown"
	}
	return partNames[p]
}

// Skeleton definiert die Gliedmaßen-Paare, zwischen denen der Visualizer
// Linien zeichnet. Indizes verweisen auf die COCO-Keypoint-IDs.
var Skeleton = [][2]PartID{
	{LeftShoulder, RightShoulder},
	{LeftShoulder, LeftElbow},
	{LeftElbow, LeftWrist},
	{RightShoulder, RightElbow},
	{RightElbow, RightWrist},
	{LeftShoulder, LeftHip},
	{RightShoulder, RightHip},
	{LeftHip, RightHip},
	{LeftHip, LeftKnee},
	{LeftKnee, LeftAnkle},
	{RightHip, RightKnee},
	{RightKnee, RightAnkle},
	{Nose, LeftEye},
	{Nose, RightEye},
	{LeftEye, LeftEar},
	{RightEye, RightEar},
}

// Point ist eine 2D-Koordinate in Pixeln
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Keypoint ist ein benannter Gelenkpunkt mit Position und Konfidenz
type Keypoint struct {
	Part       PartID  `json:"part"`
	Position   Point   `json:"position"`
	Confidence float64 `json:"confidence"`
}

// Pose repräsentiert eine erkannte Person als geordnete Menge von Keypoints.
// Posen werden pro Frame neu vom Model-Runner erzeugt, genau einmal vom
// Orchestrator in Bildschirmkoordinaten umgerechnet und am Ende des Frames
// verworfen. Es gibt keine frameübergreifende Historie.
type Pose struct {
	Keypoints []Keypoint `json:"keypoints"`
	Score     float64    `json:"score"`
}

// Dims beschreibt eine 2D-Ausdehnung in Pixeln
type Dims struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Offset ist eine 2D-Verschiebung in Pixeln
type Offset struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CropOffset berechnet den zentrierten Zuschneide-Versatz zwischen Quell-
// und Eingabedimensionen. Die Division truncatet Richtung Null, auch bei
// ungeraden Differenzen.
func CropOffset(source, input Dims) Offset {
	return Offset{
		X: (source.Width - input.Width) / 2,
		Y: (source.Height - input.Height) / 2,
	}
}
