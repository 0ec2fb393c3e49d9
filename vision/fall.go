package vision

import "fallwatch/common/config"

// ClassifyFall applies the fall heuristic to a frame's detections.
//
// A detection counts as a fall when the person is lying flat (box wider than
// tall), sits low in the frame, and still covers a large vertical span.
// Detections are evaluated in input order and the first match wins. There is
// no temporal smoothing: the verdict is computed from a single frame, so it
// can flicker between consecutive frames.
func ClassifyFall(detections []Detection, frameWidth, frameHeight int) FallVerdict {
	for i := range detections {
		det := &detections[i]

		width := det.Width()
		height := det.Height()
		if width <= 0 {
			continue
		}

		aspectRatio := float64(height) / float64(width)
		centerY := float64(det.Y1+det.Y2) / 2

		if aspectRatio < config.FallAspectRatioMax &&
			centerY > float64(frameHeight)*config.FallCenterYFraction &&
			float64(height) > float64(frameHeight)*config.FallHeightFraction {
			return FallVerdict{IsFall: true, Box: det}
		}
	}

	return FallVerdict{}
}
