//go:build darwin

package rawcd

/*
#cgo LDFLAGS: -framework CoreFoundation -framework DiskArbitration -framework IOKit
#include <stdlib.h>
#include <string.h>
#include <CoreFoundation/CoreFoundation.h>
#include <DiskArbitration/DiskArbitration.h>
#include <IOKit/IOKitLib.h>
#include <IOKit/storage/IOMedia.h>
#include <IOKit/scsi/SCSITaskLib.h>
#include <IOKit/scsi/SCSICommandOperationCodes.h>

// rawcd_mac_handle bundles everything start_da_guard/get_dev_svc hand back
// to Go, released in strict LIFO order by stop_da_guard/reset_dev_svc.
typedef struct {
    DASessionRef session;
    DADiskRef disk;
    io_service_t service;
    IOCFPlugInInterface **plugin;
    MMCDeviceInterface **mmc;
    SCSITaskDeviceInterface **task_if;
} rawcd_mac_handle;

// start_da_guard claims the whole-disk object for bsd_name so the OS does
// not mount or spin up CD services under us while we hold it open. It must
// be reversed, in order, by stop_da_guard.
static int start_da_guard(const char *bsd_name, rawcd_mac_handle *h) {
    memset(h, 0, sizeof(*h));

    h->session = DASessionCreate(kCFAllocatorDefault);
    if (h->session == NULL) {
        return -1;
    }

    h->disk = DADiskCreateFromBSDName(kCFAllocatorDefault, h->session, bsd_name);
    if (h->disk == NULL) {
        CFRelease(h->session);
        h->session = NULL;
        return -2;
    }

    // DADiskClaim with a NULL callback blocks until the claim is granted or
    // refused; kDADiskClaimOptionDefault is enough to keep Disk Arbitration
    // from auto-mounting while we hold the device open.
    DADiskClaim(h->disk, kDADiskClaimOptionDefault, NULL, NULL, NULL, NULL);
    return 0;
}

// stop_da_guard releases the claim and the session. Callers must call this
// only after reset_dev_svc has already torn down the MMC interface.
static void stop_da_guard(rawcd_mac_handle *h) {
    if (h->disk != NULL) {
        DADiskUnclaim(h->disk);
        CFRelease(h->disk);
        h->disk = NULL;
    }
    if (h->session != NULL) {
        CFRelease(h->session);
        h->session = NULL;
    }
}

// get_dev_svc resolves bsd_name to an IOKit service and opens an exclusive
// MMC task device interface on it. Must be called after start_da_guard
// succeeds, and reversed by reset_dev_svc before stop_da_guard.
static int get_dev_svc(const char *bsd_name, rawcd_mac_handle *h) {
    CFMutableDictionaryRef matching = IOBSDNameMatching(kIOMainPortDefault, 0, bsd_name);
    if (matching == NULL) {
        return -1;
    }

    h->service = IOServiceGetMatchingService(kIOMainPortDefault, matching);
    if (h->service == 0) {
        return -2;
    }

    SInt32 score = 0;
    IOReturn kr = IOCreatePlugInInterfaceForService(h->service,
        kIOMMCDeviceUserClientTypeID, kIOCFPlugInInterfaceID, &h->plugin, &score);
    if (kr != kIOReturnSuccess || h->plugin == NULL) {
        return -3;
    }

    HRESULT hr = (*h->plugin)->QueryInterface(h->plugin,
        CFUUIDGetUUIDBytes(kIOMMCDeviceInterfaceID), (LPVOID *)&h->mmc);
    if (hr != S_OK || h->mmc == NULL) {
        return -4;
    }

    h->task_if = (*h->mmc)->GetSCSITaskDeviceInterface(h->mmc);
    if (h->task_if == NULL) {
        return -5;
    }

    kr = (*h->task_if)->ObtainExclusiveAccess(h->task_if);
    if (kr != kIOReturnSuccess) {
        return -6;
    }

    return 0;
}

// reset_dev_svc releases the MMC task interface and the IOKit service. Must
// run before stop_da_guard (LIFO acquisition order, reversed).
static void reset_dev_svc(rawcd_mac_handle *h) {
    if (h->task_if != NULL) {
        (*h->task_if)->ReleaseExclusiveAccess(h->task_if);
        (*h->task_if)->Release(h->task_if);
        h->task_if = NULL;
    }
    if (h->mmc != NULL) {
        (*h->mmc)->Release(h->mmc);
        h->mmc = NULL;
    }
    if (h->plugin != NULL) {
        IODestroyPlugInInterface(h->plugin);
        h->plugin = NULL;
    }
    if (h->service != 0) {
        IOObjectRelease(h->service);
        h->service = 0;
    }
}

// submit_mmc_task builds and runs a single SCSI task through the MMC task
// interface, mirroring cd_read_toc/read_cd_audio's shared command path.
static int submit_mmc_task(rawcd_mac_handle *h, const unsigned char *cdb, int cdb_len,
                            unsigned char *buf, int buf_len, int is_read,
                            unsigned int timeout_ms,
                            unsigned char *status_out,
                            unsigned char *sense_out, int sense_cap, int *sense_len_out,
                            int *resid_out) {
    SCSITaskInterface **scsi_task = (*h->task_if)->CreateSCSITask(h->task_if);
    if (scsi_task == NULL) {
        return -1;
    }

    SCSICommandDescriptorBlock scsi_cdb;
    memset(&scsi_cdb, 0, sizeof(scsi_cdb));
    memcpy(&scsi_cdb, cdb, cdb_len > 16 ? 16 : cdb_len);
    (*scsi_task)->SetCommandDescriptorBlock(scsi_task, scsi_cdb, cdb_len);

    IOVirtualRange range;
    range.address = (IOVirtualAddress)buf;
    range.length = (IOByteCount)buf_len;
    (*scsi_task)->SetScatterGatherEntries(scsi_task, &range, 1, buf_len,
        is_read ? kSCSIDataTransfer_FromTargetToInitiator : kSCSIDataTransfer_FromInitiatorToTarget);

    (*scsi_task)->SetTimeoutDuration(scsi_task, timeout_ms);

    SCSI_Sense_Data sense;
    memset(&sense, 0, sizeof(sense));
    (*scsi_task)->SetSenseDataBuffer(scsi_task, &sense, sizeof(sense));

    SCSIServiceResponse service_response;
    SCSITaskStatus task_status;
    UInt64 bytes_transferred = 0;

    IOReturn kr = (*scsi_task)->ExecuteTaskSync(scsi_task, &sense, &task_status, &bytes_transferred);
    (*scsi_task)->GetSCSIServiceResponse(scsi_task, &service_response);

    int rc = 0;
    if (kr != kIOReturnSuccess) {
        rc = -2;
    } else {
        *status_out = (unsigned char)task_status;
        *resid_out = (int)(buf_len - (int)bytes_transferred);
        int n = sizeof(sense) < sense_cap ? sizeof(sense) : sense_cap;
        memcpy(sense_out, &sense, n);
        *sense_len_out = n;
    }

    (*scsi_task)->Release(scsi_task);
    return rc;
}
*/
import "C"

import (
	"fmt"
	"time"
	"unsafe"
)

// darwinDevice is the §4.D Darwin-family adapter. It holds a mount guard
// (start_da_guard) and an exclusive MMC task interface (get_dev_svc),
// released in the reverse order they were acquired: the device service
// first, then the mount guard.
type darwinDevice struct {
	h C.rawcd_mac_handle
}

func openPlatformDevice(path string) (closableSubmitter, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	d := &darwinDevice{}

	if rc := C.start_da_guard(cPath, &d.h); rc != 0 {
		return nil, fmt.Errorf("rawcd: claim disk %q: DiskArbitration error %d", path, int(rc))
	}

	if rc := C.get_dev_svc(cPath, &d.h); rc != 0 {
		C.stop_da_guard(&d.h)
		return nil, fmt.Errorf("rawcd: open MMC task interface for %q: IOKit error %d", path, int(rc))
	}

	return d, nil
}

// Close tears down the MMC task interface before releasing the mount
// guard, the LIFO order acquisition required.
func (d *darwinDevice) Close() error {
	C.reset_dev_svc(&d.h)
	C.stop_da_guard(&d.h)
	return nil
}

func (d *darwinDevice) submit(cdb []byte, buf []byte, timeout time.Duration, dir direction) (status byte, sense []byte, residual int, err error) {
	isRead := C.int(1)
	if dir == directionOut {
		isRead = 0
	}

	var bufPtr *C.uchar
	if len(buf) > 0 {
		bufPtr = (*C.uchar)(unsafe.Pointer(&buf[0]))
	}

	senseBuf := make([]byte, 252)
	var cStatus C.uchar
	var senseLen C.int
	var resid C.int

	rc := C.submit_mmc_task(
		&d.h,
		(*C.uchar)(unsafe.Pointer(&cdb[0])), C.int(len(cdb)),
		bufPtr, C.int(len(buf)), isRead,
		C.uint(timeout.Milliseconds()),
		&cStatus,
		(*C.uchar)(unsafe.Pointer(&senseBuf[0])), C.int(len(senseBuf)), &senseLen,
		&resid,
	)
	if rc != 0 {
		return 0, nil, 0, fmt.Errorf("rawcd: MMC task submit failed: %d", int(rc))
	}

	if senseLen > 0 {
		sense = senseBuf[:int(senseLen)]
	}

	return byte(cStatus), sense, int(resid), nil
}
