package screenconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML thresholds file layered over Default().
// An empty path returns the defaults.
func Load(path string) (Thresholds, error) {
	if path == "" {
		t := Default()
		return t, Validate(t)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Thresholds{}, fmt.Errorf("read thresholds %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes YAML thresholds layered over Default()
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Parse(data []byte) (Thresholds, error) {
	t := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return Thresholds{}, ValidationError{"yaml", err.Error()}
	}

	if err := Validate(t); err != nil {
		return Thresholds{}, err
	}

	return t, nil
}

// Hash generates SHA256 hash from Thresholds (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(t Thresholds) (string, error) {
	// Struct → JSON (결정적 순서)
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
