package jianpu

import "strings"

// unicodeApprox renders an approximation of the tune in plain Unicode
// text instead of LilyPond: figures with combining underlines for
// quavers and semiquavers, combining dots for octave marks, and box
// drawing characters for barlines.
func (c *Converter) unicodeApprox(input string) (string, error) {
	if rxNextPart.MatchString(" "+input+" ") || rxNextScore.MatchString(" "+input+" ") {
		return "", &Error{Msg: "multiple parts or scores in Unicode mode not yet supported"}
	}
	part, err := lexPart(input, 1)
	if err != nil {
		return "", err
	}
	st := newState(ModeJianpu, c.Config, 1, false, new(bool), map[string]string{}, &nameGen{})
	r := newPartRenderer(c, st, map[string]string{})
	if _, err := r.render(part.Items); err != nil {
		return "", err
	}
	out := strings.TrimSpace(strings.Join(st.unicodeApprox, ""))
	if strings.HasSuffix(out, "│") {
		out = strings.TrimSuffix(out, "│") + "║"
	}
	return out + "\n", nil
}
