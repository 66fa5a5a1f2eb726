package querystate

// JoinType enumerates the supported join kinds.
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
)

// Valid reports whether the join type is one of the supported kinds.
func (j JoinType) Valid() bool {
	switch j {
	case JoinInner, JoinLeft, JoinRight, JoinFull:
		return true
	}
	return false
}

// Operator enumerates the supported filter operators.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpLike         Operator = "LIKE"
	OpILike        Operator = "ILIKE"
	OpIn           Operator = "IN"
	OpIsNull       Operator = "IS NULL"
	OpIsNotNull    Operator = "IS NOT NULL"
)

// Valid reports whether the operator is supported.
func (o Operator) Valid() bool {
	switch o {
	case OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterEqual, OpLessEqual,
		OpLike, OpILike, OpIn, OpIsNull, OpIsNotNull:
		return true
	}
	return false
}

// IsUnary reports whether the operator takes no comparison value.
func (o Operator) IsUnary() bool {
	return o == OpIsNull || o == OpIsNotNull
}

// AggregateFunc enumerates the supported aggregate functions.
type AggregateFunc string

const (
	AggNone  AggregateFunc = "NONE"
	AggCount AggregateFunc = "COUNT"
	AggSum   AggregateFunc = "SUM"
	AggAvg   AggregateFunc = "AVG"
	AggMin   AggregateFunc = "MIN"
	AggMax   AggregateFunc = "MAX"
)

// Valid reports whether the aggregate function is supported.
func (a AggregateFunc) Valid() bool {
	switch a {
	case AggNone, AggCount, AggSum, AggAvg, AggMin, AggMax:
		return true
	}
	return false
}

// Direction enumerates sort directions.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// Valid reports whether the direction is ASC or DESC.
func (d Direction) Valid() bool {
	return d == Ascending || d == Descending
}
