package phash

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"twinfind/internal/testsupport"
)

func rampImage(w, h int, increasing bool) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := x * 255 / (w - 1)
			if !increasing {
				v = 255 - v
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return img
}

// patternImage has distinct structure along both axes.
func patternImage(w, h int, invert bool) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := ((x/16)*37 + (y/16)*91) % 256
			if invert {
				v = 255 - v
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return img
}

func TestHammingRejectsMismatchedLengths(t *testing.T) {
	a, _ := NewBits(8)
	b, _ := NewBits(16)
	if _, err := Hamming(a, b); !errors.Is(err, ErrMismatchedLength) {
		t.Fatalf("expected ErrMismatchedLength, got %v", err)
	}
	if _, err := NewBits(12); err == nil {
		t.Fatal("expected error for unsupported side")
	}
}

func TestBitsBytesRoundTrip(t *testing.T) {
	b, _ := NewBits(16)
	for _, i := range []int{0, 63, 64, 200, 255} {
		b.set(i)
	}
	back, err := FromBytes(16, b.Bytes())
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if d, _ := Hamming(b, back); d != 0 {
		t.Fatalf("round trip changed %d bits", d)
	}
	if !back.Bit(200) || back.Bit(1) {
		t.Fatal("unexpected bit values after round trip")
	}
	if _, err := FromBytes(16, b.Bytes()[:8]); err == nil {
		t.Fatal("expected error for short data")
	}
}

func TestGradientOnRamp(t *testing.T) {
	for _, side := range Sides {
		h, err := NewHasher(Gradient, Nearest, side)
		if err != nil {
			t.Fatalf("NewHasher: %v", err)
		}
		up := h.Hash(rampImage(512, 256, true))
		down := h.Hash(rampImage(512, 256, false))
		d, err := Hamming(up, down)
		if err != nil {
			t.Fatalf("Hamming: %v", err)
		}
		if d < up.Len()*9/10 {
			t.Fatalf("side %d: opposite ramps differ by only %d of %d bits", side, d, up.Len())
		}
	}
}

func TestAlgorithmsAreStableAndDiscriminating(t *testing.T) {
	algs := []Algorithm{Gradient, Mean, Block, DoubleGradient}
	for _, alg := range algs {
		t.Run(alg.String(), func(t *testing.T) {
			h, err := NewHasher(alg, Lanczos, 16)
			if err != nil {
				t.Fatalf("NewHasher: %v", err)
			}
			base := patternImage(320, 240, false)
			a := h.Hash(base)
			b := h.Hash(base)
			if d, _ := Hamming(a, b); d != 0 {
				t.Fatalf("same image hashed differently (%d bits)", d)
			}
			inv := h.Hash(patternImage(320, 240, true))
			if d, _ := Hamming(a, inv); d < a.Len()/4 {
				t.Fatalf("inverted image too close: %d bits", d)
			}
			if a.Len() != 256 {
				t.Fatalf("expected 256 bits, got %d", a.Len())
			}
		})
	}
}

func TestMeanOfUniformImageIsZero(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	h, _ := NewHasher(Mean, Linear, 8)
	b := h.Hash(img)
	for i := 0; i < b.Len(); i++ {
		if b.Bit(i) {
			t.Fatalf("bit %d set for uniform image", i)
		}
	}
}

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "a.png")
	testsupport.WriteImage(t, png, patternImage(200, 100, false))

	h, _ := NewHasher(Gradient, Lanczos, 8)
	fp, err := h.HashFile(png)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if fp.Width != 200 || fp.Height != 100 {
		t.Fatalf("unexpected dimensions %dx%d", fp.Width, fp.Height)
	}
	if want := h.Hash(patternImage(200, 100, false)); func() int { d, _ := Hamming(fp.Hash, want); return d }() != 0 {
		t.Fatal("file hash differs from in-memory hash of a lossless image")
	}

	corrupt := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(corrupt, []byte("\xff\xd8\xff garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := h.HashFile(corrupt); err == nil {
		t.Fatal("expected decode error for corrupt image")
	}
}

func TestParse(t *testing.T) {
	if a, err := ParseAlgorithm("Double_Gradient"); err != nil || a != DoubleGradient {
		t.Fatalf("ParseAlgorithm: %v %v", a, err)
	}
	if f, err := ParseFilter("cubic"); err != nil || f != Cubic {
		t.Fatalf("ParseFilter: %v %v", f, err)
	}
	if _, err := ParseFilter("bicubic"); err == nil {
		t.Fatal("expected error for unknown filter")
	}
	if _, err := NewHasher(Gradient, Lanczos, 10); err == nil {
		t.Fatal("expected error for unsupported side")
	}
}
