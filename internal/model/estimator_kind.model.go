package model

// EstimatorKind tags a transaction with the CO2 rule that applies to it.
type EstimatorKind string

// KindUnclassified is the generic kind: no rule matched and no estimate exists.
const KindUnclassified EstimatorKind = "unclassified"

func (k EstimatorKind) String() string { return string(k) }

// IsSpecific reports whether k names a real rule rather than the generic kind.
func (k EstimatorKind) IsSpecific() bool {
	return k != "" && k != KindUnclassified
}
