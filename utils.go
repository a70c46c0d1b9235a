package wagebound

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// canonicalKey renders a tuple of cell values into a string that is equal for
// values that should join: 1, int64(1) and 1.0 are the same key, "1" is not.
func canonicalKey(values []interface{}) string {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteByte('\x1f')
		}
		sb.WriteString(canonicalValue(v))
	}
	return sb.String()
}

func canonicalValue(v interface{}) string {
	switch kindOf(v) {
	case kindNull:
		return "null"
	case kindInt, kindFloat:
		return "n:" + canonicalNumber(v)
	case kindBool:
		return "b:" + strconv.FormatBool(v.(bool))
	case kindString:
		return "s:" + v.(string)
	case kindTime:
		return "t:" + v.(time.Time).UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("o:%v", v)
}

// maxExactFloatInt is the largest magnitude below which every integer is
// exactly representable as a float64.
const maxExactFloatInt = 1 << 53

// canonicalNumber renders integers exactly. Integral floats within ±2^53 render
// like the matching integer, other floats use the shortest float form.
func canonicalNumber(v interface{}) string {
	switch x := v.(type) {
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	}

	f, _ := ToFloat(v)
	if f == math.Trunc(f) && math.Abs(f) <= maxExactFloatInt {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
