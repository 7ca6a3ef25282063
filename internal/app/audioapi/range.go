package audioapi

import (
	"errors"
	"regexp"
	"strconv"
)

var errUnsatisfiable = errors.New("range not satisfiable")

var rangeRe = regexp.MustCompile(`^bytes=(\d*)-(\d*)$`)

type byteRange struct {
	start, end int64 // включительно
	partial    bool
}

// parseRange разбирает заголовок Range для объекта размера size.
// Поддерживается один диапазон: a-b, a- и суффикс -n. Заголовок другого вида
// игнорируется и отдаётся весь объект.
func parseRange(header string, size int64) (byteRange, error) {
	full := byteRange{start: 0, end: size - 1}
	if header == "" {
		return full, nil
	}
	m := rangeRe.FindStringSubmatch(header)
	if m == nil || (m[1] == "" && m[2] == "") {
		return full, nil
	}
	if size <= 0 {
		return byteRange{}, errUnsatisfiable
	}

	if m[1] == "" {
		// последние n байт
		n, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil || n == 0 {
			return byteRange{}, errUnsatisfiable
		}
		if n > size {
			n = size
		}
		return byteRange{start: size - n, end: size - 1, partial: true}, nil
	}

	start, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || start >= size {
		return byteRange{}, errUnsatisfiable
	}
	end := size - 1
	if m[2] != "" {
		end, err = strconv.ParseInt(m[2], 10, 64)
		if err != nil || end < start {
			return byteRange{}, errUnsatisfiable
		}
		if end >= size {
			end = size - 1
		}
	}
	return byteRange{start: start, end: end, partial: true}, nil
}
