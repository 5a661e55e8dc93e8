package utils

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/aquilax/truncate"
	"github.com/pkg/errors"
	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/exp/constraints"
)

func First[T any](l []T) T {
	return l[0]
}

func Last[T any](l []T) T {
	return l[len(l)-1]
}

func Min[T constraints.Ordered](a T, bs ...T) T {
	result := a
	for _, b := range bs {
		if result > b {
			result = b
		}
	}
	return result
}

func Max[T constraints.Ordered](a T, bs ...T) T {
	result := a
	for _, b := range bs {
		if result < b {
			result = b
		}
	}
	return result
}

func IIf[T any](test bool, ifTrue, ifFalse T) T {
	if test {
		return ifTrue
	} else {
		return ifFalse
	}
}

func Coalesce[T comparable](vs ...T) T {
	var def T

	for _, v := range vs {
		if v != def {
			return v
		}
	}

	return def
}

func PathAbs(path string) (string, error) {
	if strings.HasPrefix(filepath.ToSlash(path), "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		path = filepath.Join(home, path[2:])
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	return path, nil
}

func FileExists(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return true, nil

	} else if errors.Is(err, os.ErrNotExist) {
		return false, nil

	} else {
		return false, err
	}
}

func IsTextFile(path string) (bool, error) {
	return IsTextFileExt(path, 10)
}

func IsTextFileExt(path string, sampleLines int) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	fileScanner := bufio.NewScanner(file)

	for i := 0; i < sampleLines; i++ {
		if !fileScanner.Scan() {
			return true, nil
		}

		if !utf8.ValidString(fileScanner.Text()) {
			return false, nil
		}
	}

	return true, nil
}

func ListFilesRecursive(dir string, matcher func(path string) bool) ([]string, error) {
	var result []string

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err

		case entry.IsDir():
			name := filepath.Base(path)
			if path != dir && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil

		default:
			if matcher == nil || matcher(path) {
				result = append(result, path)
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func FindGitIgnore(rootDir string) (func(path string) bool, error) {
	file := filepath.Join(rootDir, ".gitignore")

	exists, err := FileExists(file)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	matcher, err := gitignore.CompileIgnoreFile(file)
	if err != nil {
		return nil, err
	}

	return func(path string) bool {
		rel, err := filepath.Rel(rootDir, path)
		if err != nil {
			return false
		}
		return matcher.MatchesPath(rel)
	}, nil
}

func TruncateFilename(path string) string {
	return truncate.Truncate(path, 60, "...", truncate.PositionStart)
}
