package xnb

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Mode uint8

const (
	ModeExtract Mode = iota
	ModeConvert
)

func (m Mode) String() string {
	switch m {
	case ModeExtract:
		return "Extract"
	case ModeConvert:
		return "Convert"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Kind of input a FilePair reads, picked by file extension.
type Input uint8

const (
	InputUnknown Input = iota
	InputXNB
	InputWaveBank
	InputImage
	InputWave
	// InputAudio needs transcoding to PCM first.
	InputAudio
)

var inputs = map[string]Input{
	".xnb":  InputXNB,
	".xwb":  InputWaveBank,
	".png":  InputImage,
	".bmp":  InputImage,
	".jpg":  InputImage,
	".jpeg": InputImage,
	".wav":  InputWave,
	".mp3":  InputAudio,
	".ogg":  InputAudio,
	".flac": InputAudio,
	".wma":  InputAudio,
	".m4a":  InputAudio,
	".aac":  InputAudio,
}

func InputOf(path string) Input {
	return inputs[strings.ToLower(filepath.Ext(path))]
}

// FilePair is one unit of work: an input file and where its output goes.
//
// For extraction Output is a path stem; the extension is chosen once the
// asset type is known, and wave bank tracks are written to Output's
// directory. For conversion Output is the .xnb path.
type FilePair struct {
	Mode   Mode
	Input  string
	Output string
}

// NewFilePair pairs input with output, replacing output's extension as the
// mode requires. It reports false for inputs the mode cannot handle.
func NewFilePair(mode Mode, input, output string) (FilePair, bool) {
	stem := strings.TrimSuffix(output, filepath.Ext(output))
	kind := InputOf(input)
	switch mode {
	case ModeExtract:
		if kind != InputXNB && kind != InputWaveBank {
			return FilePair{}, false
		}
		return FilePair{Mode: mode, Input: input, Output: stem}, true
	case ModeConvert:
		if kind != InputImage && kind != InputWave && kind != InputAudio {
			return FilePair{}, false
		}
		return FilePair{Mode: mode, Input: input, Output: stem + ".xnb"}, true
	}
	return FilePair{}, false
}
