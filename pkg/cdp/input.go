package cdp

import "fmt"

// MouseInput is a normalized mouse event. Wheel events carry the delta
// fields; every other event type carries button and click count.
type MouseInput struct {
	EventType  string  `json:"eventType"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Button     string  `json:"button,omitempty"`
	ClickCount int     `json:"clickCount,omitempty"`
	DeltaX     float64 `json:"deltaX,omitempty"`
	DeltaY     float64 `json:"deltaY,omitempty"`
}

// KeyboardInput is a normalized keyboard event. The "char" event type
// carries literal text; other types carry key and code.
type KeyboardInput struct {
	EventType string `json:"eventType"`
	Key       string `json:"key,omitempty"`
	Code      string `json:"code,omitempty"`
	Text      string `json:"text,omitempty"`
}

// TouchPoint is one contact point of a touch event.
type TouchPoint struct {
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	ID      int      `json:"id"`
	RadiusX *float64 `json:"radiusX,omitempty"`
	RadiusY *float64 `json:"radiusY,omitempty"`
	Force   *float64 `json:"force,omitempty"`
}

// TouchInput is a normalized touch event carrying an ordered list of
// contact points.
type TouchInput struct {
	EventType   string       `json:"eventType"`
	TouchPoints []TouchPoint `json:"touchPoints"`
}

// InjectMouse dispatches a mouse event into the bound page.
func (m *SessionManager) InjectMouse(in MouseInput) error {
	session, err := m.Session()
	if err != nil {
		return err
	}
	if _, err := session.Send("Input.dispatchMouseEvent", mouseEventParams(in)); err != nil {
		return fmt.Errorf("mouse dispatch failed: %w", err)
	}
	return nil
}

// InjectKeyboard dispatches a keyboard event into the bound page.
func (m *SessionManager) InjectKeyboard(in KeyboardInput) error {
	session, err := m.Session()
	if err != nil {
		return err
	}
	if _, err := session.Send("Input.dispatchKeyEvent", keyEventParams(in)); err != nil {
		return fmt.Errorf("key dispatch failed: %w", err)
	}
	return nil
}

// InjectTouch dispatches a touch event into the bound page.
func (m *SessionManager) InjectTouch(in TouchInput) error {
	session, err := m.Session()
	if err != nil {
		return err
	}
	if _, err := session.Send("Input.dispatchTouchEvent", touchEventParams(in)); err != nil {
		return fmt.Errorf("touch dispatch failed: %w", err)
	}
	return nil
}

func mouseEventParams(in MouseInput) map[string]interface{} {
	params := map[string]interface{}{
		"type": in.EventType,
		"x":    in.X,
		"y":    in.Y,
	}

	if in.EventType == "mouseWheel" {
		params["deltaX"] = in.DeltaX
		params["deltaY"] = in.DeltaY
		return params
	}

	button := in.Button
	if button == "" {
		button = "left"
	}
	clickCount := in.ClickCount
	if clickCount == 0 {
		clickCount = 1
	}
	params["button"] = button
	params["clickCount"] = clickCount
	return params
}

func keyEventParams(in KeyboardInput) map[string]interface{} {
	if in.EventType == "char" {
		text := in.Text
		if text == "" {
			text = in.Key
		}
		return map[string]interface{}{
			"type": "char",
			"text": text,
		}
	}

	code := in.Code
	if code == "" {
		code = in.Key
	}
	return map[string]interface{}{
		"type": in.EventType,
		"key":  in.Key,
		"code": code,
	}
}

func touchEventParams(in TouchInput) map[string]interface{} {
	points := make([]map[string]interface{}, 0, len(in.TouchPoints))
	for _, p := range in.TouchPoints {
		point := map[string]interface{}{
			"x":  p.X,
			"y":  p.Y,
			"id": p.ID,
		}
		if p.RadiusX != nil {
			point["radiusX"] = *p.RadiusX
		}
		if p.RadiusY != nil {
			point["radiusY"] = *p.RadiusY
		}
		if p.Force != nil {
			point["force"] = *p.Force
		}
		points = append(points, point)
	}
	return map[string]interface{}{
		"type":        in.EventType,
		"touchPoints": points,
	}
}
