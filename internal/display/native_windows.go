//go:build windows

package display

import (
	"errors"
	"fmt"
	"image"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	gdi32    = windows.NewLazySystemDLL("gdi32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procRegisterClassExW          = user32.NewProc("RegisterClassExW")
	procCreateWindowExW           = user32.NewProc("CreateWindowExW")
	procDestroyWindow             = user32.NewProc("DestroyWindow")
	procDefWindowProcW            = user32.NewProc("DefWindowProcW")
	procShowWindow                = user32.NewProc("ShowWindow")
	procSetWindowDisplayAffinity  = user32.NewProc("SetWindowDisplayAffinity")
	procEnumDisplayMonitors       = user32.NewProc("EnumDisplayMonitors")
	procUpdateLayeredWindow       = user32.NewProc("UpdateLayeredWindow")
	procGetDC                     = user32.NewProc("GetDC")
	procReleaseDC                 = user32.NewProc("ReleaseDC")
	procSetTimer                  = user32.NewProc("SetTimer")
	procKillTimer                 = user32.NewProc("KillTimer")
	procPeekMessageW              = user32.NewProc("PeekMessageW")
	procTranslateMessage          = user32.NewProc("TranslateMessage")
	procDispatchMessageW          = user32.NewProc("DispatchMessageW")
	procMsgWaitForMultipleObjects = user32.NewProc("MsgWaitForMultipleObjects")

	procCreateCompatibleDC = gdi32.NewProc("CreateCompatibleDC")
	procDeleteDC           = gdi32.NewProc("DeleteDC")
	procCreateDIBSection   = gdi32.NewProc("CreateDIBSection")
	procSelectObject       = gdi32.NewProc("SelectObject")
	procDeleteObject       = gdi32.NewProc("DeleteObject")

	procGetModuleHandleW = kernel32.NewProc("GetModuleHandleW")
)

const (
	wsPopup = 0x80000000

	wsExTopmost     = 0x00000008
	wsExTransparent = 0x00000020
	wsExToolWindow  = 0x00000080
	wsExLayered     = 0x00080000
	wsExNoActivate  = 0x08000000

	swShowNoActivate = 4

	wdaNone               = 0x00
	wdaMonitor            = 0x01
	wdaExcludeFromCapture = 0x11

	wmDestroy       = 0x0002
	wmQuit          = 0x0012
	wmDisplayChange = 0x007E
	wmTimer         = 0x0113
	wmDeviceChange  = 0x0219

	pmRemove   = 0x0001
	qsAllInput = 0x04FF

	ulwAlpha    = 0x02
	acSrcOver   = 0x00
	acSrcAlpha  = 0x01
	biRGB       = 0
	dibRGBColor = 0

	refreshTimerID = 1

	errClassAlreadyExists = syscall.Errno(1410)
)

const overlayClassName = "WatermarkOverlay"

type wndClassEx struct {
	cbSize        uint32
	style         uint32
	lpfnWndProc   uintptr
	cbClsExtra    int32
	cbWndExtra    int32
	hInstance     windows.Handle
	hIcon         windows.Handle
	hCursor       windows.Handle
	hbrBackground windows.Handle
	lpszMenuName  *uint16
	lpszClassName *uint16
	hIconSm       windows.Handle
}

type point struct {
	x, y int32
}

type size struct {
	cx, cy int32
}

type msg struct {
	hwnd     windows.HWND
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	pt       point
	lPrivate uint32
}

type blendFunction struct {
	blendOp             byte
	blendFlags          byte
	sourceConstantAlpha byte
	alphaFormat         byte
}

type bitmapInfoHeader struct {
	biSize          uint32
	biWidth         int32
	biHeight        int32
	biPlanes        uint16
	biBitCount      uint16
	biCompression   uint32
	biSizeImage     uint32
	biXPelsPerMeter int32
	biYPelsPerMeter int32
	biClrUsed       uint32
	biClrImportant  uint32
}

type bitmapInfo struct {
	header bitmapInfoHeader
	colors [1]uint32
}

var (
	wndProcCallback     = windows.NewCallback(wndProc)
	enumMonitorCallback = windows.NewCallback(enumMonitorProc)

	// active is the backend whose thread is pumping messages. Window and
	// enumeration callbacks run on that same thread.
	active *win32Backend
)

// win32Backend drives layered, click-through, topmost popup windows.
type win32Backend struct {
	instance  uintptr
	className *uint16
	title     *uint16

	// sentinel is a hidden top-level window that receives display change
	// broadcasts even when no overlay exists.
	sentinel windows.HWND

	timerHwnd  windows.HWND
	pending    []Event
	enumerated []Monitor
}

// NewNative returns the platform overlay backend.
func NewNative() (Backend, error) {
	return &win32Backend{}, nil
}

func (b *win32Backend) Open() error {
	inst, _, err := procGetModuleHandleW.Call(0)
	if inst == 0 {
		return fmt.Errorf("failed to get module handle: %w", err)
	}
	b.instance = inst

	b.className, err = windows.UTF16PtrFromString(overlayClassName)
	if err != nil {
		return err
	}
	b.title, err = windows.UTF16PtrFromString("")
	if err != nil {
		return err
	}

	wc := wndClassEx{
		lpfnWndProc:   wndProcCallback,
		hInstance:     windows.Handle(inst),
		lpszClassName: b.className,
	}
	wc.cbSize = uint32(unsafe.Sizeof(wc))
	if atom, _, err := procRegisterClassExW.Call(uintptr(unsafe.Pointer(&wc))); atom == 0 && !errors.Is(err, errClassAlreadyExists) {
		return fmt.Errorf("failed to register window class: %w", err)
	}

	active = b

	hwnd, _, err := procCreateWindowExW.Call(
		wsExToolWindow,
		uintptr(unsafe.Pointer(b.className)),
		uintptr(unsafe.Pointer(b.title)),
		wsPopup,
		0, 0, 0, 0,
		0, 0, b.instance, 0)
	if hwnd == 0 {
		active = nil
		return fmt.Errorf("failed to create notification window: %w", err)
	}
	b.sentinel = windows.HWND(hwnd)

	return nil
}

func (b *win32Backend) Monitors() ([]Monitor, error) {
	b.enumerated = b.enumerated[:0]
	r, _, err := procEnumDisplayMonitors.Call(0, 0, enumMonitorCallback, 0)
	if r == 0 {
		return nil, fmt.Errorf("failed to enumerate monitors: %w", err)
	}
	return append([]Monitor(nil), b.enumerated...), nil
}

func enumMonitorProc(hmonitor, hdc, lprc, lparam uintptr) uintptr {
	if active == nil || lprc == 0 {
		return 1
	}
	rc := (*windows.Rect)(unsafe.Pointer(lprc))
	active.enumerated = append(active.enumerated, Monitor{
		Index:  len(active.enumerated),
		Bounds: image.Rect(int(rc.Left), int(rc.Top), int(rc.Right), int(rc.Bottom)),
	})
	return 1
}

func (b *win32Backend) CreateSurface(bounds image.Rectangle, opts SurfaceOptions) (Surface, error) {
	if bounds.Empty() {
		return nil, fmt.Errorf("failed to create overlay window at %v: empty bounds", bounds)
	}

	hwnd, _, err := procCreateWindowExW.Call(
		wsExLayered|wsExTransparent|wsExTopmost|wsExToolWindow|wsExNoActivate,
		uintptr(unsafe.Pointer(b.className)),
		uintptr(unsafe.Pointer(b.title)),
		wsPopup,
		uintptr(bounds.Min.X), uintptr(bounds.Min.Y),
		uintptr(bounds.Dx()), uintptr(bounds.Dy()),
		0, 0, b.instance, 0)
	if hwnd == 0 {
		return nil, fmt.Errorf("failed to create overlay window at %v: %w", bounds, err)
	}

	if opts.ExcludeFromCapture {
		// WDA_EXCLUDEFROMCAPTURE needs Windows 10 2004; older builds only
		// support blacking the window out.
		if r, _, _ := procSetWindowDisplayAffinity.Call(hwnd, wdaExcludeFromCapture); r == 0 {
			procSetWindowDisplayAffinity.Call(hwnd, wdaMonitor)
		}
	} else {
		procSetWindowDisplayAffinity.Call(hwnd, wdaNone)
	}

	procShowWindow.Call(hwnd, swShowNoActivate)

	return &win32Surface{hwnd: windows.HWND(hwnd), bounds: bounds}, nil
}

func (b *win32Backend) ArmTimer(s Surface, interval time.Duration) error {
	ws, ok := s.(*win32Surface)
	if !ok || ws.hwnd == 0 {
		return fmt.Errorf("failed to arm timer: invalid surface")
	}
	if b.timerHwnd != 0 && b.timerHwnd != ws.hwnd {
		procKillTimer.Call(uintptr(b.timerHwnd), refreshTimerID)
	}
	r, _, err := procSetTimer.Call(uintptr(ws.hwnd), refreshTimerID, uintptr(interval.Milliseconds()), 0)
	if r == 0 {
		return fmt.Errorf("failed to set timer: %w", err)
	}
	b.timerHwnd = ws.hwnd
	return nil
}

func (b *win32Backend) WaitEvent(timeout time.Duration) (Event, bool) {
	deadline := time.Now().Add(timeout)
	for {
		if ev, ok := b.popPending(); ok {
			return ev, true
		}

		var m msg
		for {
			r, _, _ := procPeekMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0, pmRemove)
			if r == 0 {
				break
			}
			if m.message == wmQuit {
				return Event{Kind: EventQuit}, true
			}
			procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
			procDispatchMessageW.Call(uintptr(unsafe.Pointer(&m)))
			if ev, ok := b.popPending(); ok {
				return ev, true
			}
		}
		if ev, ok := b.popPending(); ok {
			return ev, true
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return Event{}, false
		}
		procMsgWaitForMultipleObjects.Call(0, 0, 0, uintptr(remaining.Milliseconds()+1), qsAllInput)
	}
}

func (b *win32Backend) popPending() (Event, bool) {
	if len(b.pending) == 0 {
		return Event{}, false
	}
	ev := b.pending[0]
	b.pending = b.pending[1:]
	return ev, true
}

// queue appends ev, coalescing with an identical event already waiting.
func (b *win32Backend) queue(ev Event) {
	for _, p := range b.pending {
		if p == ev {
			return
		}
	}
	b.pending = append(b.pending, ev)
}

func (b *win32Backend) Close() error {
	if b.sentinel != 0 {
		procDestroyWindow.Call(uintptr(b.sentinel))
		b.sentinel = 0
	}
	b.timerHwnd = 0
	b.pending = nil
	if active == b {
		active = nil
	}
	return nil
}

func wndProc(hwnd, message, wParam, lParam uintptr) uintptr {
	b := active
	switch message {
	case wmTimer:
		if b != nil && wParam == refreshTimerID {
			b.queue(Event{Kind: EventTimer})
		}
		return 0
	case wmDisplayChange, wmDeviceChange:
		// Every top-level window gets the broadcast; only the sentinel
		// reports it so one change yields one rebuild.
		if b != nil && windows.HWND(hwnd) == b.sentinel {
			b.queue(Event{Kind: EventTopologyChange})
		}
		return 0
	case wmDestroy:
		// No PostQuitMessage: destroying overlays during a rebuild must not
		// end the loop.
		return 0
	}
	r, _, _ := procDefWindowProcW.Call(hwnd, message, wParam, lParam)
	return r
}

// win32Surface is one layered overlay window.
type win32Surface struct {
	hwnd   windows.HWND
	bounds image.Rectangle
}

// Present copies frame into a DIB section and pushes it with
// UpdateLayeredWindow using per-pixel alpha. Every GDI object acquired here
// is released by a deferred call, whichever path returns.
func (s *win32Surface) Present(frame *image.RGBA) error {
	if s.hwnd == 0 {
		return errSurfaceDestroyed
	}
	w, h := s.bounds.Dx(), s.bounds.Dy()
	if frame.Bounds().Dx() != w || frame.Bounds().Dy() != h {
		return fmt.Errorf("frame size %v does not match surface %v", frame.Bounds().Size(), s.bounds.Size())
	}

	screen, _, err := procGetDC.Call(0)
	if screen == 0 {
		return fmt.Errorf("failed to get screen DC: %w", err)
	}
	defer procReleaseDC.Call(0, screen)

	mem, _, err := procCreateCompatibleDC.Call(screen)
	if mem == 0 {
		return fmt.Errorf("failed to create memory DC: %w", err)
	}
	defer procDeleteDC.Call(mem)

	bmi := bitmapInfo{header: bitmapInfoHeader{
		biWidth:       int32(w),
		biHeight:      -int32(h), // top-down
		biPlanes:      1,
		biBitCount:    32,
		biCompression: biRGB,
	}}
	bmi.header.biSize = uint32(unsafe.Sizeof(bmi.header))

	var bits unsafe.Pointer
	bmp, _, err := procCreateDIBSection.Call(mem, uintptr(unsafe.Pointer(&bmi)), dibRGBColor, uintptr(unsafe.Pointer(&bits)), 0, 0)
	if bmp == 0 || bits == nil {
		if bmp != 0 {
			procDeleteObject.Call(bmp)
		}
		return fmt.Errorf("failed to create DIB section: %w", err)
	}
	defer procDeleteObject.Call(bmp)

	old, _, _ := procSelectObject.Call(mem, bmp)
	defer procSelectObject.Call(mem, old)

	ToBGRA(unsafe.Slice((*byte)(bits), w*h*4), frame)

	dst := point{int32(s.bounds.Min.X), int32(s.bounds.Min.Y)}
	sz := size{int32(w), int32(h)}
	src := point{}
	blend := blendFunction{
		blendOp:             acSrcOver,
		sourceConstantAlpha: 255,
		alphaFormat:         acSrcAlpha,
	}
	r, _, err := procUpdateLayeredWindow.Call(
		uintptr(s.hwnd), screen,
		uintptr(unsafe.Pointer(&dst)), uintptr(unsafe.Pointer(&sz)),
		mem, uintptr(unsafe.Pointer(&src)),
		0, uintptr(unsafe.Pointer(&blend)), ulwAlpha)
	if r == 0 {
		return fmt.Errorf("failed to update layered window: %w", err)
	}
	return nil
}

func (s *win32Surface) Destroy() error {
	if s.hwnd == 0 {
		return nil
	}
	r, _, err := procDestroyWindow.Call(uintptr(s.hwnd))
	s.hwnd = 0
	if r == 0 {
		return fmt.Errorf("failed to destroy overlay window: %w", err)
	}
	return nil
}
