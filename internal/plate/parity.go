package plate

import "oddeven-service/internal/domain/capture"

// ResolveParity classifies a plate by the last digit of its digit block.
// Total: invalid plates and plates without digits are INDETERMINATE.
func ResolveParity(p capture.Plate) capture.Parity {
	if !p.Valid {
		return capture.ParityIndeterminate
	}
	last := byte(0)
	found := false
	for i := 0; i < len(p.Text); i++ {
		if p.Text[i] >= '0' && p.Text[i] <= '9' {
			last = p.Text[i]
			found = true
		}
	}
	if !found {
		return capture.ParityIndeterminate
	}
	if (last-'0')%2 == 1 {
		return capture.ParityOdd
	}
	return capture.ParityEven
}
